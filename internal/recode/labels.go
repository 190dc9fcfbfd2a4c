package recode

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"cpstables/pkg/domain"
)

// Labels maps raw field name to code to display name.
type Labels map[string]map[int64]string

// DefaultLabels returns the labels the derived variables depend on.
func DefaultLabels() Labels {
	yesNo := map[int64]string{1: "YES", 2: "NO"}
	return Labels{
		FieldCert1:         yesNo,
		FieldCert2:         yesNo,
		FieldCert3:         yesNo,
		FieldExperiencedLF: {1: Employed, 2: Unemployed},
		FieldFullTimeLF:    {1: FullTimeLaborForce, 2: PartTimeLaborForce},
		FieldSex:           {1: "MALE", 2: "FEMALE"},
		FieldHispanic:      {1: "HISPANIC", 2: "NON-HISPANIC"},
		FieldCivilianLF:    {1: "IN", 2: "NOT IN"},
	}
}

// Merge returns a copy of l overlaid with other. Entries in other win.
func (l Labels) Merge(other Labels) Labels {
	out := make(Labels, len(l)+len(other))
	for _, src := range []Labels{l, other} {
		for field, codes := range src {
			dst, ok := out[field]
			if !ok {
				dst = make(map[int64]string, len(codes))
				out[field] = dst
			}
			for code, name := range codes {
				dst[code] = name
			}
		}
	}
	return out
}

// Lookup returns the label of code within field.
func (l Labels) Lookup(field string, code int64) (string, bool) {
	name, ok := l[field][code]
	return name, ok
}

// Text labels a nullable code. Unlabelled codes render as decimal text.
func (l Labels) Text(field string, code domain.Count) domain.Text {
	c, ok := code.Get()
	if !ok {
		return domain.None[string]()
	}
	if name, ok := l.Lookup(field, c); ok {
		return domain.Some(name)
	}
	return domain.Some(strconv.FormatInt(c, 10))
}

// DecodeLabels reads a YAML (or JSON) document of the form
// {FIELD: {"code": "name"}}.
func DecodeLabels(r io.Reader) (Labels, error) {
	var raw map[string]map[string]string
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if err == io.EOF {
			return Labels{}, nil
		}
		return nil, fmt.Errorf("decode labels: %w", err)
	}
	out := make(Labels, len(raw))
	for field, codes := range raw {
		m := make(map[int64]string, len(codes))
		for k, name := range codes {
			code, err := strconv.ParseInt(k, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("decode labels: field %s: code %q: %w", field, k, err)
			}
			m[code] = name
		}
		out[field] = m
	}
	return out, nil
}

// LoadLabels reads a label file from disk.
func LoadLabels(path string) (Labels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	defer func() { _ = f.Close() }()
	return DecodeLabels(f)
}

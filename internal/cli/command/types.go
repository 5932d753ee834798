package command

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// FieldType describes how an input value is encoded.
type FieldType int

const (
	FieldString FieldType = iota
	FieldInt
	FieldInt64
	FieldBool
	FieldStringList
	// FieldFile names a file whose content fills Target.
	FieldFile
)

// Location says where a field travels in the HTTP request.
type Location int

const (
	InBody Location = iota
	InPath
	InQuery
)

// Field defines a CLI input field.
type Field struct {
	Name     string
	Aliases  []string
	Prompt   string
	Type     FieldType
	In       Location
	Required bool
	// Target is the field a FieldFile populates.
	Target string
}

// Command defines a CLI command binding.
type Command struct {
	Service      string
	Action       string
	Method       string
	PathTemplate string
	RequiresAuth bool
	// StoresToken marks commands whose response carries a fresh access token.
	StoresToken bool
	Fields      []Field
}

// Key is the "service action" lookup key.
func (c Command) Key() string {
	return c.Service + " " + c.Action
}

// RequestSpec is the built HTTP request.
type RequestSpec struct {
	Method string
	Path   string
	Body   []byte
}

// Params holds parsed input params.
type Params map[string]string

func (p Params) Get(key string) string {
	return p[strings.ToLower(key)]
}

func (p Params) Set(key, value string) {
	p[strings.ToLower(key)] = value
}

func (p Params) Has(key string) bool {
	_, ok := p[strings.ToLower(key)]
	return ok
}

func (p Params) Canonicalize(fields []Field) {
	for _, field := range fields {
		for _, alias := range field.Aliases {
			aliasKey := strings.ToLower(alias)
			if value, ok := p[aliasKey]; ok {
				p[strings.ToLower(field.Name)] = value
				delete(p, aliasKey)
			}
		}
	}
}

// ParseAssignments turns key=value tokens into Params.
func ParseAssignments(tokens []string) (Params, error) {
	params := Params{}
	for _, token := range tokens {
		parts := strings.SplitN(token, "=", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
			return nil, fmt.Errorf("invalid param: %s", token)
		}
		params.Set(strings.TrimSpace(parts[0]), parts[1])
	}
	return params, nil
}

func ParseInt64(value string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(value), 10, 64)
}

func ParseInt(value string) (int, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 32)
	return int(n), err
}

func ParseStringList(value string) []string {
	raw := strings.Split(value, ",")
	result := make([]string, 0, len(raw))
	for _, item := range raw {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}

func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file failed: %w", err)
	}
	return string(data), nil
}

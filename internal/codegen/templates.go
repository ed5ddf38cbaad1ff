package codegen

import (
	"bytes"
	"fmt"
	"go/format"
	"strings"
	"text/template"
	"unicode"
)

const fileTemplate = `// Code generated by structio-gen. DO NOT EDIT.
// Source: {{.SourceFile}}
// Generator version: {{.GeneratorVersion}}

package {{.PackageName}}
{{range .Structs}}
// StructioFields lists the encoded fields of {{.Name}} in declaration order.
func ({{.Receiver}} *{{.Name}}{{.TypeArgs}}) StructioFields() []any {
	return []any{
{{- $recv := .Receiver}}
{{- range .Fields}}
		&{{$recv}}.{{.}},
{{- end}}
	}
}
{{end}}`

// TemplateData is the input of one generated file
type TemplateData struct {
	PackageName      string
	SourceFile       string
	GeneratorVersion string
	Structs          []TemplateStruct
}

// TemplateStruct is one struct in a generated file
type TemplateStruct struct {
	Name     string
	Receiver string
	TypeArgs string
	Fields   []string
}

// GenerationConfig holds the settings that shape generated code
type GenerationConfig struct {
	OutputSuffix     string
	GeneratorVersion string
}

// TemplateEngine renders generated files
type TemplateEngine struct {
	tmpl *template.Template
}

// NewTemplateEngine parses the generated file template
func NewTemplateEngine() (*TemplateEngine, error) {
	tmpl, err := template.New("structio").Parse(fileTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return &TemplateEngine{tmpl: tmpl}, nil
}

// GenerateCode renders data and formats the result with gofmt
func (e *TemplateEngine) GenerateCode(data TemplateData) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}

	code, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to format generated code: %w", err)
	}
	return code, nil
}

// BuildTemplateData turns the structs of one source file into template data.
// All structs must come from the same file and package.
func BuildTemplateData(structs []StructInfo, config GenerationConfig) TemplateData {
	data := TemplateData{GeneratorVersion: config.GeneratorVersion}
	for _, s := range structs {
		data.PackageName = s.PackageName
		data.SourceFile = s.SourceFile

		ts := TemplateStruct{
			Name:     s.StructName,
			Receiver: receiverName(s),
		}
		if len(s.TypeParams) > 0 {
			ts.TypeArgs = "[" + strings.Join(s.TypeParams, ", ") + "]"
		}
		for _, f := range s.Listed() {
			ts.Fields = append(ts.Fields, f.Name)
		}
		data.Structs = append(data.Structs, ts)
	}
	return data
}

// OutputFileName returns the generated file name for a source file
func OutputFileName(sourceFile, suffix string) string {
	return strings.TrimSuffix(sourceFile, ".go") + suffix + ".go"
}

// receiverName picks a short receiver that does not shadow a type parameter
func receiverName(s StructInfo) string {
	name := string(unicode.ToLower([]rune(s.StructName)[0]))
	for _, p := range s.TypeParams {
		if p == name {
			return "recv"
		}
	}
	if name == "_" {
		return "recv"
	}
	return name
}

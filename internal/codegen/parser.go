package codegen

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Directive marks a struct whose StructioFields method should be generated.
const Directive = "//structio:fields"

// TagName is the struct tag key read by the generator. A value of "-" leaves
// the field out of the generated list.
const TagName = "structio"

// StructInfo describes a struct annotated with the fields directive
type StructInfo struct {
	PackageName      string
	StructName       string
	SourceFile       string
	TypeParams       []string
	Fields           []FieldInfo
	HasMethod        bool // StructioFields already declared by hand
	IsValid          bool
	ValidationErrors []string
}

// FieldInfo describes one field of an annotated struct
type FieldInfo struct {
	Name     string
	Type     string
	Tag      string
	Embedded bool
	Skipped  bool
}

// Listed returns the fields that go into the generated method, in
// declaration order.
func (s StructInfo) Listed() []FieldInfo {
	var out []FieldInfo
	for _, f := range s.Fields {
		if !f.Skipped {
			out = append(out, f)
		}
	}
	return out
}

// DiscoveryConfig holds configuration for struct discovery
type DiscoveryConfig struct {
	// GeneratedSuffix identifies generated files, whose methods do not count
	// as hand written.
	GeneratedSuffix string
}

// DiscoverStructs finds every annotated struct in the package at packagePath.
// Results are sorted by source file, then by position in the file.
func DiscoverStructs(packagePath string, config *DiscoveryConfig) ([]StructInfo, error) {
	if config == nil {
		config = &DiscoveryConfig{}
	}

	fset := token.NewFileSet()
	pkgs, err := parser.ParseDir(fset, packagePath, nil, parser.ParseComments)
	if err != nil {
		return nil, err
	}

	var structs []StructInfo
	for pkgName, pkg := range pkgs {
		if strings.HasSuffix(pkgName, "_test") {
			continue
		}

		methods := handWrittenMethods(pkg, config.GeneratedSuffix)

		fileNames := make([]string, 0, len(pkg.Files))
		for name := range pkg.Files {
			if strings.HasSuffix(name, "_test.go") {
				continue
			}
			fileNames = append(fileNames, name)
		}
		sort.Strings(fileNames)

		for _, fileName := range fileNames {
			found := discoverStructsInFile(fileName, pkg.Files[fileName], pkgName)
			for i := range found {
				found[i].HasMethod = methods[found[i].StructName]
			}
			structs = append(structs, found...)
		}
	}

	validator := NewStructValidator()
	for i := range structs {
		if errs := validator.Validate(structs[i]); len(errs) > 0 {
			structs[i].IsValid = false
			structs[i].ValidationErrors = errs
		}
	}

	return structs, nil
}

// discoverStructsInFile returns the annotated type declarations of one file
func discoverStructsInFile(fileName string, file *ast.File, pkgName string) []StructInfo {
	var structs []StructInfo

	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.TYPE {
			continue
		}
		for _, spec := range gen.Specs {
			ts := spec.(*ast.TypeSpec)
			doc := ts.Doc
			if doc == nil && len(gen.Specs) == 1 {
				doc = gen.Doc
			}
			if !hasDirective(doc) {
				continue
			}
			structs = append(structs, analyzeType(fileName, pkgName, ts))
		}
	}

	return structs
}

func hasDirective(doc *ast.CommentGroup) bool {
	if doc == nil {
		return false
	}
	for _, c := range doc.List {
		if strings.TrimSpace(c.Text) == Directive {
			return true
		}
	}
	return false
}

// analyzeType collects the fields of an annotated type. Non-struct types are
// kept so validation can report them.
func analyzeType(fileName, pkgName string, ts *ast.TypeSpec) StructInfo {
	info := StructInfo{
		PackageName: pkgName,
		StructName:  ts.Name.Name,
		SourceFile:  filepath.Base(fileName),
		IsValid:     true,
	}

	if ts.TypeParams != nil {
		for _, field := range ts.TypeParams.List {
			for _, name := range field.Names {
				info.TypeParams = append(info.TypeParams, name.Name)
			}
		}
	}

	st, ok := ts.Type.(*ast.StructType)
	if !ok {
		info.IsValid = false
		info.ValidationErrors = []string{fmt.Sprintf("%s is not a struct type", info.StructName)}
		return info
	}

	for _, field := range st.Fields.List {
		tag := fieldTag(field)
		typ := getTypeString(field.Type)

		if len(field.Names) == 0 {
			info.Fields = append(info.Fields, FieldInfo{
				Name:     embeddedName(field.Type),
				Type:     typ,
				Tag:      tag,
				Embedded: true,
				Skipped:  tag == "-",
			})
			continue
		}
		for _, name := range field.Names {
			info.Fields = append(info.Fields, FieldInfo{
				Name:    name.Name,
				Type:    typ,
				Tag:     tag,
				Skipped: tag == "-" || name.Name == "_",
			})
		}
	}

	return info
}

func fieldTag(field *ast.Field) string {
	if field.Tag == nil {
		return ""
	}
	raw, err := strconv.Unquote(field.Tag.Value)
	if err != nil {
		return ""
	}
	return reflect.StructTag(raw).Get(TagName)
}

// embeddedName returns the implicit field name of an embedded type
func embeddedName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return embeddedName(t.X)
	case *ast.SelectorExpr:
		return t.Sel.Name
	case *ast.IndexExpr:
		return embeddedName(t.X)
	case *ast.IndexListExpr:
		return embeddedName(t.X)
	default:
		return ""
	}
}

// handWrittenMethods returns the receiver type names that declare
// StructioFields outside generated files.
func handWrittenMethods(pkg *ast.Package, generatedSuffix string) map[string]bool {
	methods := make(map[string]bool)
	for fileName, file := range pkg.Files {
		if generatedSuffix != "" && strings.HasSuffix(fileName, generatedSuffix+".go") {
			continue
		}
		for _, decl := range file.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Recv == nil || fn.Name.Name != "StructioFields" || len(fn.Recv.List) == 0 {
				continue
			}
			methods[embeddedName(fn.Recv.List[0].Type)] = true
		}
	}
	return methods
}

// getTypeString converts an ast.Expr to its string representation
func getTypeString(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.ArrayType:
		if t.Len == nil {
			return "[]" + getTypeString(t.Elt)
		}
		if lit, ok := t.Len.(*ast.BasicLit); ok {
			return "[" + lit.Value + "]" + getTypeString(t.Elt)
		}
		return "[...]" + getTypeString(t.Elt)
	case *ast.StarExpr:
		return "*" + getTypeString(t.X)
	case *ast.SelectorExpr:
		return getTypeString(t.X) + "." + t.Sel.Name
	case *ast.MapType:
		return "map[" + getTypeString(t.Key) + "]" + getTypeString(t.Value)
	case *ast.IndexExpr:
		return getTypeString(t.X) + "[" + getTypeString(t.Index) + "]"
	case *ast.IndexListExpr:
		args := make([]string, len(t.Indices))
		for i, idx := range t.Indices {
			args[i] = getTypeString(idx)
		}
		return getTypeString(t.X) + "[" + strings.Join(args, ", ") + "]"
	case *ast.StructType:
		return "struct{...}"
	case *ast.FuncType:
		return "func"
	case *ast.ChanType:
		return "chan " + getTypeString(t.Value)
	case *ast.InterfaceType:
		return "interface{...}"
	default:
		return "unknown"
	}
}

package metadata

import (
	"reflect"
	"strings"
	"time"
	"unicode"
)

// Inspect analyzes a struct and returns its EntityDef.
//
// Field capabilities come from tags:
//
//	db:"column"                      storage column (defaults to the json name)
//	json:"name"                      field name exposed to report configurations
//	report:"filter,group,sort,agg"   capability flags; fields without the tag are skipped
//	enum:"draft|sent|paid"           enum domain, turns a string field into an enum
//	label:"Invoice Number"           display label (defaults to a title-cased name)
func Inspect(entity interface{}, name string) EntityDef {
	t := reflect.TypeOf(entity)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if name == "" {
		name = toSnake(t.Name())
	}

	def := EntityDef{
		Name:   name,
		Label:  guessLabel(name),
		Fields: make([]FieldDef, 0),
	}

	inspectStruct(t, &def)

	return def
}

func inspectStruct(t reflect.Type, def *EntityDef) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.PkgPath != "" { // unexported
			continue
		}

		// Handle embedded structs (flattening)
		if field.Anonymous {
			ft := field.Type
			if ft.Kind() == reflect.Ptr {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				inspectStruct(ft, def)
			}
			continue
		}

		caps, ok := field.Tag.Lookup("report")
		if !ok {
			continue
		}

		fDef := FieldDef{
			Name: jsonName(field),
		}
		if fDef.Name == "-" {
			continue
		}
		fDef.Column = dbName(field, fDef.Name)
		fDef.Label = field.Tag.Get("label")
		if fDef.Label == "" {
			fDef.Label = guessLabel(fDef.Name)
		}

		applyCapabilities(&fDef, caps)
		mapFieldType(&fDef, field)

		def.Fields = append(def.Fields, fDef)
	}
}

func applyCapabilities(def *FieldDef, tag string) {
	for _, c := range strings.Split(tag, ",") {
		switch strings.TrimSpace(c) {
		case "filter":
			def.Filterable = true
		case "group":
			def.Groupable = true
		case "sort":
			def.Sortable = true
		case "agg":
			def.Aggregatable = true
		}
	}
}

var timeType = reflect.TypeOf(time.Time{})

func mapFieldType(def *FieldDef, field reflect.StructField) {
	t := field.Type
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t == timeType {
		def.Type = TypeDate
		return
	}

	if enum := field.Tag.Get("enum"); enum != "" {
		def.Type = TypeEnum
		def.Options = strings.Split(enum, "|")
		return
	}

	switch t.Kind() {
	case reflect.String:
		def.Type = TypeString
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		def.Type = TypeNumber
	case reflect.Bool:
		def.Type = TypeBoolean
	default:
		// decimal.Decimal and similar value types are numbers in storage
		if strings.Contains(strings.ToLower(t.Name()), "decimal") {
			def.Type = TypeNumber
			return
		}
		def.Type = TypeString
	}
}

func jsonName(field reflect.StructField) string {
	if tag, ok := field.Tag.Lookup("json"); ok {
		parts := strings.Split(tag, ",")
		if parts[0] != "" {
			return parts[0]
		}
	}
	return toSnake(field.Name)
}

func dbName(field reflect.StructField, fallback string) string {
	if tag, ok := field.Tag.Lookup("db"); ok && tag != "" && tag != "-" {
		return tag
	}
	return fallback
}

// guessLabel turns "total_amount" into "Total Amount".
func guessLabel(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool { return r == '_' || r == ' ' })
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// toSnake converts CamelCase identifiers to snake_case.
func toSnake(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

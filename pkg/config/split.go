package config

import (
	"bytes"
	"fmt"
	"io"
	"reflect"
	"strings"
	"unicode"
)

// Like strings.Fields but ignores spaces inside areas surrounded
// by the specified quote character.
// To specify a single quote use backslash to escape it: '\''
func SplitQuotedFields(in string, quote rune) []string {
	type stateEnum int
	const (
		inSpace stateEnum = iota
		inField
		inQuote
		inQuoteEscaped
	)
	state := inSpace
	r := []string{}
	var buf bytes.Buffer

	for _, ch := range in {
		switch state {
		case inSpace:
			if ch == quote {
				state = inQuote
			} else if !unicode.IsSpace(ch) {
				buf.WriteRune(ch)
				state = inField
			}

		case inField:
			if ch == quote {
				state = inQuote
			} else if unicode.IsSpace(ch) {
				r = append(r, buf.String())
				buf.Reset()
				state = inSpace
			} else {
				buf.WriteRune(ch)
			}

		case inQuote:
			if ch == quote {
				state = inField
			} else if ch == '\\' {
				state = inQuoteEscaped
			} else {
				buf.WriteRune(ch)
			}

		case inQuoteEscaped:
			buf.WriteRune(ch)
			state = inQuote
		}
	}

	if buf.Len() != 0 {
		r = append(r, buf.String())
	}

	return r
}

// ConfigureListByName returns the name and value of the field of conf
// whose tag key equals name, formatted as a single tab separated line.
// It returns the empty string if no field matches.
func ConfigureListByName(conf interface{}, name, tag string) string {
	if name == "" {
		return ""
	}
	var buf bytes.Buffer
	iterateConfiguration(conf, tag, func(fieldName string, field reflect.Value) bool {
		if fieldName != name {
			return true
		}
		configureListField(&buf, fieldName, field)
		return false
	})
	return buf.String()
}

// ConfigureList writes every field of conf that has a tag key to w.
func ConfigureList(w io.Writer, conf interface{}, tag string) {
	iterateConfiguration(conf, tag, func(fieldName string, field reflect.Value) bool {
		configureListField(w, fieldName, field)
		return true
	})
}

func iterateConfiguration(conf interface{}, tag string, fn func(string, reflect.Value) bool) {
	v := reflect.ValueOf(conf)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		fieldName := t.Field(i).Tag.Get(tag)
		if fieldName == "" {
			continue
		}
		if idx := strings.Index(fieldName, ","); idx >= 0 {
			fieldName = fieldName[:idx]
		}
		if !fn(fieldName, v.Field(i)) {
			return
		}
	}
}

func configureListField(w io.Writer, fieldName string, field reflect.Value) {
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			fmt.Fprintf(w, "%s\t<not defined>\n", fieldName)
			return
		}
		field = field.Elem()
	}
	fmt.Fprintf(w, "%s\t%v\n", fieldName, field)
}

package model

import (
	"strconv"
	"strings"
)

// Tag represents parsed jorm tags
type Tag struct {
	Ignore     bool
	Column     string
	PrimaryKey bool
	AutoInc    bool
	Size       int
	Unique     bool
	NotNull    bool
	Default    string
	AutoTime   bool
	AutoUpdate bool
	Type       string

	// Hashid options. Nil pointers mean the option was not supplied.
	Salt      *string
	MinLength *int
	Alphabet  *string
	Encoder   string
	Source    string

	// Invalid lists unknown options and options whose value could not be parsed.
	Invalid []string
}

// valueKeys are the options that are only meaningful as key:value.
var valueKeys = map[string]bool{
	"column": true, "size": true, "default": true, "type": true,
	"salt": true, "min_length": true, "alphabet": true, "encoder": true, "source": true,
}

// ParseTag parses the "jorm" tag string
func ParseTag(tagStr string) *Tag {
	tag := &Tag{}
	tagStr = strings.TrimSpace(tagStr)
	if tagStr == "" {
		return tag
	}
	if tagStr == "-" {
		tag.Ignore = true
		return tag
	}

	parts, ok := splitTag(tagStr)
	if !ok {
		tag.Invalid = append(tag.Invalid, "unterminated quote")
		return tag
	}

	for _, part := range parts {
		kv := strings.SplitN(part, ":", 2)
		key := strings.ToLower(kv[0])
		var val string
		if len(kv) > 1 {
			val = kv[1]
		} else if valueKeys[key] {
			tag.Invalid = append(tag.Invalid, part)
			continue
		}

		switch key {
		case "-":
			tag.Ignore = true
		case "column":
			tag.Column = val
		case "pk":
			tag.PrimaryKey = true
		case "auto":
			tag.AutoInc = true
		case "unique":
			tag.Unique = true
		case "notnull":
			tag.NotNull = true
		case "size":
			n, err := strconv.Atoi(val)
			if err != nil {
				tag.Invalid = append(tag.Invalid, part)
				continue
			}
			tag.Size = n
		case "default":
			tag.Default = val
		case "auto_time":
			tag.AutoTime = true
		case "auto_update":
			tag.AutoUpdate = true
		case "type":
			tag.Type = val
		case "salt":
			s := val
			tag.Salt = &s
		case "min_length":
			n, err := strconv.Atoi(val)
			if err != nil {
				tag.Invalid = append(tag.Invalid, part)
				continue
			}
			tag.MinLength = &n
		case "alphabet":
			a := val
			tag.Alphabet = &a
		case "encoder":
			tag.Encoder = val
		case "source":
			tag.Source = val
		default:
			tag.Invalid = append(tag.Invalid, part)
		}
	}
	return tag
}

// splitTag splits a tag on spaces, semicolons and commas. Commas inside
// parentheses are kept, as in type:decimal(10,2). A single-quoted value is
// taken literally and the quotes are dropped, as in salt:'my secret salt'.
func splitTag(tagStr string) ([]string, bool) {
	var (
		parts   []string
		sb      strings.Builder
		inParen bool
		inQuote bool
		quoted  bool
	)
	flush := func() {
		if sb.Len() > 0 || quoted {
			parts = append(parts, sb.String())
		}
		sb.Reset()
		quoted = false
	}

	for _, r := range tagStr {
		if inQuote {
			if r == '\'' {
				inQuote = false
				continue
			}
			sb.WriteRune(r)
			continue
		}
		switch r {
		case '\'':
			inQuote, quoted = true, true
		case '(':
			inParen = true
			sb.WriteRune(r)
		case ')':
			inParen = false
			sb.WriteRune(r)
		case ';', ',':
			if inParen {
				sb.WriteRune(r)
			} else {
				flush()
			}
		case ' ', '\t', '\n':
			flush()
		default:
			sb.WriteRune(r)
		}
	}
	if inQuote {
		return nil, false
	}
	flush()
	return parts, true
}

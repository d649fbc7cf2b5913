package inventory

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/sansible/sansible/pkg/errors"
)

// Parser parses one inventory source into an Inventory.
type Parser interface {
	Parse(filePath string) (*Inventory, error)
}

// INIParser parses the line-oriented sections format: [group],
// [group:children], [group:vars], host lines with key=value pairs.
type INIParser struct{}

func NewINIParser() *INIParser { return &INIParser{} }

func (p *INIParser) Parse(filePath string) (*Inventory, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory file: %w", err)
	}

	inv := NewInventory()
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNum := 0
	section := "hosts"
	group := "ungrouped"

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			header := line[1 : len(line)-1]
			switch {
			case strings.HasSuffix(header, ":vars"):
				group = strings.TrimSuffix(header, ":vars")
				section = "vars"
			case strings.HasSuffix(header, ":children"):
				group = strings.TrimSuffix(header, ":children")
				section = "children"
			default:
				group = header
				section = "hosts"
			}
			inv.EnsureGroup(group)
			continue
		}

		if err := p.parseLine(inv, line, section, group); err != nil {
			return nil, errors.NewParseError(filePath, lineNum, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewParseError(filePath, lineNum, err)
	}

	if err := inv.Finalize(); err != nil {
		return nil, err
	}
	return inv, nil
}

func (p *INIParser) parseLine(inv *Inventory, line, section, group string) error {
	switch section {
	case "hosts":
		return p.parseHostLine(inv, line, group)
	case "vars":
		return p.parseGroupVarLine(inv, line, group)
	case "children":
		return p.parseChildLine(inv, line, group)
	default:
		return p.parseHostLine(inv, line, group)
	}
}

// parseHostLine parses "hostname [key=value ...]", expanding any
// <prefix>[LOW:HIGH]<suffix> range token in the hostname first.
func (p *INIParser) parseHostLine(inv *Inventory, line, group string) error {
	fields, err := splitRespectingQuotes(line)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}

	names, err := ExpandHostRange(fields[0])
	if err != nil {
		return err
	}

	vars := map[string]interface{}{}
	for _, field := range fields[1:] {
		key, value, ok := parseKeyValue(field)
		if ok {
			vars[key] = value
		}
	}

	for _, name := range names {
		host := inv.EnsureHost(name)
		for k, v := range vars {
			host.Vars[k] = v
		}
		inv.AddHostToGroup(name, group)
	}
	return nil
}

func (p *INIParser) parseGroupVarLine(inv *Inventory, line, group string) error {
	key, value, ok := parseKeyValue(line)
	if !ok {
		return fmt.Errorf("invalid variable line: %s", line)
	}
	inv.EnsureGroup(group).Vars[key] = value
	return nil
}

func (p *INIParser) parseChildLine(inv *Inventory, line, group string) error {
	inv.AddChild(group, strings.TrimSpace(line))
	return nil
}

// parseKeyValue splits "key=value", honoring single or double quoting
// around the value so values containing spaces are supportable, per
// ansible's short-form argument convention.
func parseKeyValue(field string) (string, string, bool) {
	idx := strings.Index(field, "=")
	if idx < 0 {
		return "", "", false
	}
	key := field[:idx]
	value := field[idx+1:]
	value = unquote(value)
	return key, coerceScalar(value), true
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// coerceScalar returns the value unchanged: INI inventory values stay
// strings (e.g. http_port=80 yields "80"); no integer or boolean typing
// is applied.
func coerceScalar(s string) string {
	return s
}

// splitRespectingQuotes tokenizes a host line on whitespace but keeps
// quoted key="value with spaces" pairs intact as one token.
func splitRespectingQuotes(line string) ([]string, error) {
	var fields []string
	var cur strings.Builder
	inQuote := byte(0)
	flush := func() {
		if cur.Len() > 0 {
			fields = append(fields, cur.String())
			cur.Reset()
		}
	}
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case inQuote != 0:
			cur.WriteByte(c)
			if c == inQuote {
				inQuote = 0
			}
		case c == '"' || c == '\'':
			inQuote = c
			cur.WriteByte(c)
		case c == ' ' || c == '\t':
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	if inQuote != 0 {
		return nil, fmt.Errorf("unterminated quote in line: %s", line)
	}
	flush()
	return fields, nil
}

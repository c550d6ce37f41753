package scheduler

import (
	"errors"
	"fmt"
	"strings"
)

const (
	varPrefix = "x"
	varSep    = '|'
	varEscape = '\\'
)

// ErrBadVarName is returned when a variable name was not produced by EncodeVarName
var ErrBadVarName = errors.New("scheduler: malformed variable name")

var escaper = strings.NewReplacer(`\`, `\\`, `|`, `\|`)

// EncodeVarName builds the variable name for an (employee, role) cell.
// Separator and escape characters inside identifiers are escaped, so any
// pair of strings round-trips through DecodeVarName.
func EncodeVarName(employee, role string) string {
	return varPrefix + string(varSep) + escaper.Replace(employee) + string(varSep) + escaper.Replace(role)
}

// DecodeVarName is the inverse of EncodeVarName
func DecodeVarName(name string) (employee, role string, err error) {
	if !strings.HasPrefix(name, varPrefix+string(varSep)) {
		return "", "", fmt.Errorf("%w: %q", ErrBadVarName, name)
	}
	var fields []string
	var cur strings.Builder
	rest := name[len(varPrefix)+1:]
	for i := 0; i < len(rest); i++ {
		switch c := rest[i]; c {
		case varEscape:
			if i+1 >= len(rest) {
				return "", "", fmt.Errorf("%w: dangling escape in %q", ErrBadVarName, name)
			}
			i++
			cur.WriteByte(rest[i])
		case varSep:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	fields = append(fields, cur.String())
	if len(fields) != 2 {
		return "", "", fmt.Errorf("%w: %q has %d fields", ErrBadVarName, name, len(fields))
	}
	return fields[0], fields[1], nil
}

package native

import "strings"

// StringBuilder represents a java.lang.StringBuilder.
type StringBuilder struct {
	b strings.Builder
}

// Append adds s to the builder.
func (sb *StringBuilder) Append(s string) *StringBuilder {
	sb.b.WriteString(s)
	return sb
}

// Len returns the number of bytes written so far.
func (sb *StringBuilder) Len() int {
	return sb.b.Len()
}

func (sb *StringBuilder) String() string {
	return sb.b.String()
}

package controller

// Passkey symbols: short press appends a dot, long press a dash.
const (
	SymbolShort = "."
	SymbolLong  = "-"
)

// passkeyBuffer accumulates entered symbols against the configured secret
// using longest-prefix-continuation: if secret starts with buffer+symbol the
// buffer extends; otherwise it resets to the symbol alone when that is a
// valid start, or to empty. This tolerates an immediate retry without an
// explicit clear action.
type passkeyBuffer struct {
	secret string
	buf    string
}

// Reset clears the entered symbols.
func (p *passkeyBuffer) Reset() {
	p.buf = ""
}

// Feed consumes one symbol and reports whether the full secret was matched.
func (p *passkeyBuffer) Feed(sym string) bool {
	next := p.buf + sym
	switch {
	case len(next) <= len(p.secret) && p.secret[:len(next)] == next:
		p.buf = next
	case len(sym) <= len(p.secret) && p.secret[:len(sym)] == sym:
		p.buf = sym
	default:
		p.buf = ""
	}

	if p.buf == p.secret && p.secret != "" {
		p.buf = ""
		return true
	}
	return false
}

// Entered returns the symbols currently buffered, for the on-screen hint.
func (p *passkeyBuffer) Entered() string {
	return p.buf
}

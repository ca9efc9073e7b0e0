// Package ustr implements the kernel's internal path/string type: an
// immutable byte slice with no allocation surprises, since every path
// component the VFS touches ultimately comes from a user-memory copy.
//
// Grounded on ustr/ustr.go in the teacher pack.
package ustr

// Ustr is a kernel-internal string, usually a path.
type Ustr []uint8

// Isdot reports whether the string is exactly ".".
func (us Ustr) Isdot() bool {
	return len(us) == 1 && us[0] == '.'
}

// Isdotdot reports whether the string is exactly "..".
func (us Ustr) Isdotdot() bool {
	return len(us) == 2 && us[0] == '.' && us[1] == '.'
}

// Eq reports byte-for-byte equality.
func (us Ustr) Eq(s Ustr) bool {
	if len(us) != len(s) {
		return false
	}
	for i, v := range us {
		if v != s[i] {
			return false
		}
	}
	return true
}

// MkUstr returns an empty Ustr.
func MkUstr() Ustr { return Ustr{} }

// MkUstrDot returns ".".
func MkUstrDot() Ustr { return Ustr(".") }

// MkUstrRoot returns "/".
func MkUstrRoot() Ustr { return Ustr("/") }

// DotDot is a reusable ".." value.
var DotDot = Ustr{'.', '.'}

// MkUstrSlice truncates buf at the first NUL byte, as when reading a
// NUL-terminated path out of user memory.
func MkUstrSlice(buf []uint8) Ustr {
	for i := 0; i < len(buf); i++ {
		if buf[i] == 0 {
			return buf[:i]
		}
	}
	return buf
}

// Extend appends '/' then p.
func (us Ustr) Extend(p Ustr) Ustr {
	tmp := make(Ustr, len(us))
	copy(tmp, us)
	r := append(tmp, '/')
	return append(r, p...)
}

// ExtendStr is Extend for a plain Go string.
func (us Ustr) ExtendStr(p string) Ustr {
	return us.Extend(Ustr(p))
}

// IsAbsolute reports whether the path starts with '/'.
func (us Ustr) IsAbsolute() bool {
	if len(us) == 0 {
		return false
	}
	return us[0] == '/'
}

// IndexByte returns the index of b, or -1.
func (us Ustr) IndexByte(b uint8) int {
	for i, v := range us {
		if v == b {
			return i
		}
	}
	return -1
}

// String renders the Ustr as a Go string.
func (us Ustr) String() string {
	return string(us)
}

// Components splits the path on '/', dropping empty components (so that
// repeated and trailing slashes collapse, per spec.md Testable Property 6).
func (us Ustr) Components() []Ustr {
	var out []Ustr
	start := -1
	for i := 0; i <= len(us); i++ {
		if i == len(us) || us[i] == '/' {
			if start >= 0 {
				out = append(out, us[start:i])
				start = -1
			}
		} else if start < 0 {
			start = i
		}
	}
	return out
}

// Package bpath canonicalizes kernel paths: it resolves "." and "..",
// collapses repeated slashes, and (per SPEC_FULL.md §2 domain-stack wiring)
// normalizes each component to Unicode NFC so that visually identical
// paths built from different decompositions resolve to the same inode.
//
// Grounded on the (empty in the retrieved pack, but imported by fd/fd.go)
// bpath package in the teacher; the Canonicalize contract is inferred from
// that caller and from spec.md §4.7/Testable Property 6.
package bpath

import (
	"golang.org/x/text/unicode/norm"

	"corekernel/ustr"
)

// Canonicalize resolves "." and ".." components and collapses repeated or
// trailing slashes, returning an absolute path when p is absolute.
func Canonicalize(p ustr.Ustr) ustr.Ustr {
	abs := p.IsAbsolute()
	comps := p.Components()
	out := make([]ustr.Ustr, 0, len(comps))
	for _, c := range comps {
		switch {
		case c.Isdot():
			continue
		case c.Isdotdot():
			if len(out) > 0 && !out[len(out)-1].Isdotdot() {
				out = out[:len(out)-1]
			} else if !abs {
				out = append(out, c)
			}
			// at an absolute root, ".." is a no-op
		default:
			out = append(out, normalize(c))
		}
	}
	return join(abs, out)
}

// join reconstructs a canonical path from its resolved components.
func join(abs bool, comps []ustr.Ustr) ustr.Ustr {
	if len(comps) == 0 {
		if abs {
			return ustr.MkUstrRoot()
		}
		return ustr.MkUstrDot()
	}
	ret := append(ustr.Ustr{}, comps[0]...)
	for _, c := range comps[1:] {
		ret = ret.Extend(c)
	}
	if abs {
		full := make(ustr.Ustr, 0, len(ret)+1)
		full = append(full, '/')
		full = append(full, ret...)
		return full
	}
	return ret
}

// normalize applies Unicode NFC normalization to a single path component.
func normalize(c ustr.Ustr) ustr.Ustr {
	if !norm.NFC.IsNormal(c) {
		return ustr.Ustr(norm.NFC.Bytes(c))
	}
	return c
}

// Split separates the final component (the "file name") from the directory
// prefix, matching the usual dirname/basename split used when resolving
// "lookup all but the last component, then operate on the last one" (the
// O_CREAT/O_EXCL/no-follow-last-symlink contract in spec.md §4.7).
func Split(p ustr.Ustr) (dir ustr.Ustr, name ustr.Ustr) {
	c := Canonicalize(p)
	comps := c.Components()
	if len(comps) == 0 {
		return ustr.MkUstrRoot(), ustr.MkUstr()
	}
	name = comps[len(comps)-1]
	dir = ustr.MkUstrRoot()
	for _, comp := range comps[:len(comps)-1] {
		dir = dir.Extend(comp)
	}
	if len(comps) == 1 {
		if c.IsAbsolute() {
			dir = ustr.MkUstrRoot()
		} else {
			dir = ustr.MkUstrDot()
		}
	}
	return dir, name
}

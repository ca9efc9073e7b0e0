// Command mkfs packs a host directory tree into a USTAR initrd image, the
// archive format corekernel/initrd's UstarArchive reader consumes at boot.
//
// Grounded on mkfs/mkfs.go's addfiles (filepath.WalkDir over a skeleton
// directory, creating a dir or file entry per visited path) and ufs.go's
// MkDisk/BootFS disk-image bracket, retargeted from a log-structured disk
// image to the flat USTAR archive corekernel/initrd actually reads -- this
// core's filesystem is an in-memory tree built at boot (see fs.StartFS),
// not a mountable disk image, so mkfs's job shrinks to producing the one
// input artifact that tree needs.
package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"corekernel/initrd"
)

func usage(me string) {
	fmt.Printf("%s <skeldir> <output image>\n\nPack <skeldir> into a USTAR initrd image at <output image>\n", me)
	os.Exit(1)
}

// addfiles walks skeldir and appends one UstarSource per visited entry,
// directories first, matching the order BuildUstarArchive documents.
func addfiles(skeldir string) ([]initrd.UstarSource, error) {
	var srcs []initrd.UstarSource
	err := filepath.WalkDir(skeldir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(path, skeldir), "/")
		if rel == "" {
			return nil
		}
		if d.IsDir() {
			srcs = append(srcs, initrd.UstarSource{Name: rel, Type: initrd.TypeDir, Mode: 0755})
			return nil
		}
		data, rerr := os.ReadFile(path)
		if rerr != nil {
			return rerr
		}
		srcs = append(srcs, initrd.UstarSource{Name: rel, Type: initrd.TypeReg, Mode: 0644, Data: data})
		return nil
	})
	return srcs, err
}

func main() {
	if len(os.Args) != 3 {
		usage(os.Args[0])
	}
	skeldir := os.Args[1]
	out := os.Args[2]

	srcs, err := addfiles(skeldir)
	if err != nil {
		fmt.Printf("error walking %q: %v\n", skeldir, err)
		os.Exit(1)
	}

	img := initrd.BuildUstarArchive(srcs)
	if err := os.WriteFile(out, img, 0644); err != nil {
		fmt.Printf("error writing %q: %v\n", out, err)
		os.Exit(1)
	}
	fmt.Printf("wrote %d bytes, %d entries, to %s\n", len(img), len(srcs), out)
}

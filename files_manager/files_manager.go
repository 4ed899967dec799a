package files_manager

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"archconv/contracts"
)

type BatchJob = contracts.BatchJob

// SupportedExts is the input allow-list, also valid as output extensions.
var SupportedExts = []string{"tif", "tiff", "png", "jpg", "jpeg"}

func IsSupported(path string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	return slices.Contains(SupportedExts, ext)
}

func IsTIFF(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".tif" || ext == ".tiff"
}

// NormalizeOutExt lower-cases ext and strips a leading dot.
func NormalizeOutExt(ext string) (string, error) {
	e := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if !slices.Contains(SupportedExts, e) {
		return "", fmt.Errorf("unsupported output extension %q, use one of: %s", ext, strings.Join(SupportedExts, ", "))
	}
	return e, nil
}

// Discover returns the supported files under root in lexicographic order.
// Symbolic links are never followed. AppleDouble "._" files are skipped.
func Discover(root string, recursive bool) ([]string, error) {
	var files []string
	keep := func(name string, mode fs.FileMode) bool {
		return mode.IsRegular() && !strings.HasPrefix(name, "._") && IsSupported(name)
	}

	if !recursive {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if keep(entry.Name(), entry.Type()) {
				files = append(files, filepath.Join(root, entry.Name()))
			}
		}
	} else {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if keep(d.Name(), d.Type()) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	slices.Sort(files)
	return files, nil
}

// JobOptions control how destinations are derived from inputs.
type JobOptions struct {
	InputRoot  string
	OutputRoot string
	Recursive  bool
	OutExt     string
	Suffix     string
}

// PlanJob maps input to its destination: the path relative to the input root
// in recursive mode, the bare file name otherwise, renamed to
// stem+suffix+"."+ext. Names must be valid UTF-8 and are stored NFC.
func PlanJob(input string, opts JobOptions) (BatchJob, error) {
	var rel string
	if opts.Recursive {
		r, err := filepath.Rel(opts.InputRoot, input)
		if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
			return BatchJob{Input: input}, contracts.PathErrorf(input, "not under input root %s", opts.InputRoot)
		}
		rel = r
	} else {
		rel = filepath.Base(input)
	}

	if !utf8.ValidString(rel) {
		return BatchJob{Input: input}, contracts.PathErrorf(input, "file name is not valid UTF-8")
	}
	rel = norm.NFC.String(rel)

	dir, name := filepath.Split(rel)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if stem == "" {
		return BatchJob{Input: input}, contracts.PathErrorf(input, "empty file name")
	}
	out := filepath.Join(opts.OutputRoot, dir, stem+opts.Suffix+"."+opts.OutExt)
	return BatchJob{Input: input, Relative: rel, Output: out}, nil
}

// PlanJobs plans every input in order. errs[i] is non-nil when inputs[i]
// cannot be planned or its destination was already claimed by an earlier
// input, e.g. a.tif and a.png with the same output extension.
func PlanJobs(inputs []string, opts JobOptions) (jobs []BatchJob, errs []error) {
	jobs = make([]BatchJob, len(inputs))
	errs = make([]error, len(inputs))
	claimed := make(map[string]string, len(inputs))
	for i, input := range inputs {
		jobs[i], errs[i] = PlanJob(input, opts)
		if errs[i] != nil {
			continue
		}
		out := jobs[i].Output
		if first, ok := claimed[out]; ok {
			errs[i] = contracts.PathErrorf(input, "output %s is already the destination of %s", out, first)
			continue
		}
		claimed[out] = input
	}
	return jobs, errs
}

// EnsureParentDir creates the directory of path. Another worker creating the
// same directory concurrently is not an error.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			if info, statErr := os.Stat(dir); statErr == nil && info.IsDir() {
				return nil
			}
		}
		return contracts.PathErrorf(dir, "cannot create output directory: %v", err)
	}
	return nil
}

func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// WriteAtomic streams into a hidden temporary file next to path and renames
// it into place once write and close succeeded.
func WriteAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	bw := bufio.NewWriterSize(tmp, 1<<20)
	if err := write(bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	tmp = nil
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}

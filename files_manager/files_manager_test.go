package files_manager

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"archconv/contracts"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{
		"b.TIF", "a.png", "notes.txt", "._a.tif", "c.jpeg",
		"sub/d.jpg", "sub/deeper/e.tiff", "sub/f.gif",
	} {
		touch(t, filepath.Join(root, name))
	}
	if runtime.GOOS != "windows" {
		other := t.TempDir()
		touch(t, filepath.Join(other, "linked.tif"))
		if err := os.Symlink(other, filepath.Join(root, "link")); err != nil {
			t.Fatal(err)
		}
		if err := os.Symlink(filepath.Join(other, "linked.tif"), filepath.Join(root, "z.tif")); err != nil {
			t.Fatal(err)
		}
	}

	flat, err := Discover(root, false)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a.png", "b.TIF", "c.jpeg"}
	if len(flat) != len(want) {
		t.Fatalf("flat = %v", flat)
	}
	for i, name := range want {
		if flat[i] != filepath.Join(root, name) {
			t.Errorf("flat[%d] = %s, want %s", i, flat[i], name)
		}
	}

	deep, err := Discover(root, true)
	if err != nil {
		t.Fatal(err)
	}
	want = []string{"a.png", "b.TIF", "c.jpeg", "sub/d.jpg", "sub/deeper/e.tiff"}
	if len(deep) != len(want) {
		t.Fatalf("recursive = %v", deep)
	}
	for i, name := range want {
		if deep[i] != filepath.Join(root, filepath.FromSlash(name)) {
			t.Errorf("recursive[%d] = %s, want %s", i, deep[i], name)
		}
	}

	if _, err := Discover(filepath.Join(root, "missing"), true); err == nil {
		t.Error("expected error for missing root")
	}
}

func TestPlanJob(t *testing.T) {
	in := filepath.Join("in", "box", "scan.TIF")
	tests := []struct {
		name string
		opts JobOptions
		want string
		rel  string
	}{
		{
			name: "recursive keeps tree",
			opts: JobOptions{InputRoot: "in", OutputRoot: "out", Recursive: true, OutExt: "tif", Suffix: "_uc"},
			want: filepath.Join("out", "box", "scan_uc.tif"),
			rel:  filepath.Join("box", "scan.TIF"),
		},
		{
			name: "flat uses base name",
			opts: JobOptions{InputRoot: "in", OutputRoot: "out", OutExt: "png"},
			want: filepath.Join("out", "scan.png"),
			rel:  "scan.TIF",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, err := PlanJob(in, tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if job.Output != tt.want || job.Relative != tt.rel || job.Input != in {
				t.Errorf("job = %+v", job)
			}
		})
	}
}

func TestPlanJobNormalizesNFC(t *testing.T) {
	decomposed := "Zlu\u0301ty\u0301.tif"
	job, err := PlanJob(filepath.Join("in", decomposed), JobOptions{InputRoot: "in", OutputRoot: "out", OutExt: "tif"})
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join("out", "Zl\u00fat\u00fd.tif"); job.Output != want {
		t.Errorf("output = %q, want %q", job.Output, want)
	}
}

func TestPlanJobPathErrors(t *testing.T) {
	_, err := PlanJob(filepath.Join("elsewhere", "a.tif"), JobOptions{InputRoot: "in", OutputRoot: "out", Recursive: true, OutExt: "tif"})
	if !errors.Is(err, contracts.ErrPath) {
		t.Errorf("expected path error outside root, got %v", err)
	}
	_, err = PlanJob(filepath.Join("in", "bad\xff.tif"), JobOptions{InputRoot: "in", OutputRoot: "out", OutExt: "tif"})
	if !errors.Is(err, contracts.ErrPath) {
		t.Errorf("expected path error for invalid UTF-8, got %v", err)
	}
}

func TestPlanJobsRejectsSharedDestination(t *testing.T) {
	opts := JobOptions{InputRoot: "in", OutputRoot: "out", OutExt: "tif"}
	inputs := []string{
		filepath.Join("in", "a.png"),
		filepath.Join("in", "a.tif"),
		filepath.Join("in", "b.jpg"),
		filepath.Join("in", "sub", "a.jpeg"),
	}
	jobs, errs := PlanJobs(inputs, opts)
	if len(jobs) != len(inputs) || len(errs) != len(inputs) {
		t.Fatalf("got %d jobs, %d errors", len(jobs), len(errs))
	}
	for i, wantErr := range []bool{false, true, false, true} {
		if got := errs[i] != nil; got != wantErr {
			t.Errorf("%s: err = %v", inputs[i], errs[i])
		}
	}
	if !errors.Is(errs[1], contracts.ErrPath) {
		t.Errorf("expected path error, got %v", errs[1])
	}
	if jobs[1].Output != filepath.Join("out", "a.tif") {
		t.Errorf("duplicate keeps its planned output, got %q", jobs[1].Output)
	}

	// recursive mode keeps the subdirectory apart
	opts.Recursive = true
	_, errs = PlanJobs(inputs, opts)
	if errs[1] == nil || errs[3] != nil {
		t.Errorf("recursive errors = %v", errs)
	}
}

func TestNormalizeOutExt(t *testing.T) {
	for in, want := range map[string]string{".TIF": "tif", "jpeg": "jpeg", " png ": "png", "Tiff": "tiff"} {
		got, err := NormalizeOutExt(in)
		if err != nil || got != want {
			t.Errorf("NormalizeOutExt(%q) = %q, %v", in, got, err)
		}
	}
	for _, bad := range []string{"", "gif", "pdf"} {
		if _, err := NormalizeOutExt(bad); err == nil {
			t.Errorf("NormalizeOutExt(%q) should fail", bad)
		}
	}
}

func TestEnsureParentDirConcurrent(t *testing.T) {
	root := t.TempDir()
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- EnsureParentDir(filepath.Join(root, "a", "b", "c", "file.tif"))
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("EnsureParentDir: %v", err)
		}
	}

	touch(t, filepath.Join(root, "blocker"))
	if err := EnsureParentDir(filepath.Join(root, "blocker", "x.tif")); !errors.Is(err, contracts.ErrPath) {
		t.Errorf("expected path error when a file blocks the directory, got %v", err)
	}
}

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")

	err := WriteAtomic(path, func(w io.Writer) error {
		_, err := w.Write([]byte("payload"))
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := os.ReadFile(path); string(got) != "payload" {
		t.Errorf("content = %q", got)
	}

	boom := errors.New("boom")
	err = WriteAtomic(filepath.Join(dir, "failed.bin"), func(w io.Writer) error { return boom })
	if !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || !Exists(path) || Exists(filepath.Join(dir, "failed.bin")) {
		t.Errorf("unexpected directory content after failed write: %v", entries)
	}
}

package fetch

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"go.chariot.build/chariot/internal/container"
)

type recordedExec struct {
	command string
	workdir string
}

type fakeContainer struct {
	execs      []recordedExec
	failOn     string // substring of the command to fail
	copiedTo   []string
	lastTarred map[string]string // name -> contents, from the last CopyTo tar stream
}

func (f *fakeContainer) Exec(ctx context.Context, shell, command string, env []string, workdir string) (*container.ExecResult, error) {
	f.execs = append(f.execs, recordedExec{command: command, workdir: workdir})
	if f.failOn != "" && strings.Contains(command, f.failOn) {
		return &container.ExecResult{ExitCode: 1, Stderr: "boom"}, nil
	}
	return &container.ExecResult{ExitCode: 0}, nil
}

func (f *fakeContainer) CopyTo(ctx context.Context, r io.Reader, destDir string) error {
	f.copiedTo = append(f.copiedTo, destDir)
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	return nil
}

func (f *fakeContainer) CopyFrom(ctx context.Context, w io.Writer, path string) error { return nil }
func (f *fakeContainer) Destroy(ctx context.Context)                                  {}

func TestFetchTarballRunsExpectedCommands(t *testing.T) {
	ctr := &fakeContainer{}
	f := New(ctr)

	if err := f.FetchTarball(context.Background(), "https://example.com/a.tar.gz", "abc123", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ctr.execs) != 2 {
		t.Fatalf("expected 2 exec calls (wget, b2sum check), got %d: %+v", len(ctr.execs), ctr.execs)
	}
	if !strings.Contains(ctr.execs[0].command, "wget") {
		t.Fatalf("expected first exec to be wget, got %q", ctr.execs[0].command)
	}
	if !strings.Contains(ctr.execs[1].command, "b2sum --check") {
		t.Fatalf("expected second exec to be b2sum --check, got %q", ctr.execs[1].command)
	}
	if len(ctr.copiedTo) != 1 || ctr.copiedTo[0] != "/chariot/source" {
		t.Fatalf("expected b2sums.txt copied into /chariot/source, got %+v", ctr.copiedTo)
	}
}

func TestFetchTarballChecksumMismatchFails(t *testing.T) {
	ctr := &fakeContainer{failOn: "b2sum --check"}
	f := New(ctr)
	if err := f.FetchTarball(context.Background(), "https://example.com/a.tar.gz", "abc123", false); err == nil {
		t.Fatalf("expected an error on checksum mismatch")
	}
}

func TestFetchGitRunsCloneFetchCheckoutInOrder(t *testing.T) {
	ctr := &fakeContainer{}
	f := New(ctr)
	if err := f.FetchGit(context.Background(), "https://example.com/repo.git", "deadbeef"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ctr.execs) != 3 {
		t.Fatalf("expected 3 exec calls, got %d", len(ctr.execs))
	}
	if !strings.Contains(ctr.execs[0].command, "git clone") {
		t.Fatalf("expected clone first, got %q", ctr.execs[0].command)
	}
	if !strings.Contains(ctr.execs[1].command, "fetch") {
		t.Fatalf("expected fetch second, got %q", ctr.execs[1].command)
	}
	if !strings.Contains(ctr.execs[2].command, "checkout deadbeef") {
		t.Fatalf("expected checkout by explicit hash last, got %q", ctr.execs[2].command)
	}
}

func TestFetchLocalMissingPathFails(t *testing.T) {
	ctr := &fakeContainer{}
	f := New(ctr)
	if err := f.FetchLocal(context.Background(), "/nonexistent/path/that/should/not/exist"); err == nil {
		t.Fatalf("expected an error for a missing local source path")
	}
}

func TestShellQuoteEscapesEmbeddedQuotes(t *testing.T) {
	got := shellQuote("a'b")
	want := `'a'\''b'`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestHostChecksumIsDeterministic(t *testing.T) {
	a, err := HostChecksum(strings.NewReader("chariot"))
	if err != nil {
		t.Fatalf("HostChecksum: %v", err)
	}
	b, err := HostChecksum(strings.NewReader("chariot"))
	if err != nil {
		t.Fatalf("HostChecksum: %v", err)
	}
	if a != b {
		t.Fatalf("expected the same digest for the same input, got %s and %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected a 32-byte hex-encoded digest (64 chars), got %d: %s", len(a), a)
	}
}

func TestHostChecksumDiffersOnDifferentInput(t *testing.T) {
	a, err := HostChecksum(strings.NewReader("chariot"))
	if err != nil {
		t.Fatalf("HostChecksum: %v", err)
	}
	b, err := HostChecksum(strings.NewReader("not chariot"))
	if err != nil {
		t.Fatalf("HostChecksum: %v", err)
	}
	if a == b {
		t.Fatalf("expected different digests for different input")
	}
}

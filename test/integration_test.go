//go:build integration

package test_test

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/reesdraminski/soundboard/catalog"
	"github.com/reesdraminski/soundboard/clip"
)

var testBinary string

var silencePath string

func TestMain(m *testing.M) {
	testBinary = os.Getenv("SOUNDBOARD_TEST_BIN")
	if testBinary == "" {
		fmt.Fprintln(os.Stderr, "SOUNDBOARD_TEST_BIN not set; build the binary and point this at it")
		os.Exit(1)
	}

	dir, err := os.MkdirTemp("", "soundboard-integration-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "tempdir: %v\n", err)
		os.Exit(1)
	}
	silencePath = filepath.Join(dir, "silence.wav")
	if err := generateSilenceWAV(silencePath, 44100, 0.5); err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate silence.wav: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

func generateSilenceWAV(path string, sampleRate int, durationS float64) error {
	const headerSize = 44
	numSamples := int(float64(sampleRate) * durationS)
	dataSize := numSamples * 2

	buf := make([]byte, headerSize+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(headerSize-8+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(buf[32:34], 2)  // block align
	binary.LittleEndian.PutUint16(buf[34:36], 16) // bits per sample
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	return os.WriteFile(path, buf, 0644)
}

func cmds(parts ...string) string {
	return strings.Join(parts, "\n") + "\n"
}

type run struct {
	logDir string
	store  string
	output string
}

func runBoard(t *testing.T, storePath, stdin string, args ...string) run {
	t.Helper()
	logDir := t.TempDir()
	cmdArgs := append([]string{"--logpath", logDir}, args...)

	cmd := exec.Command(testBinary, cmdArgs...)
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Env = append(os.Environ(),
		"XDG_CONFIG_HOME="+t.TempDir(),
		"SOUNDBOARD_STORE_PATH="+storePath,
		"SOUNDBOARD_WATCH=false",
	)

	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("soundboard exited with error: %v\noutput: %s", err, out)
	}
	return run{logDir: logDir, store: storePath, output: string(out)}
}

func readLog(t *testing.T, logDir, filename string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(logDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return ""
		}
		t.Fatalf("failed to read %s: %v", filename, err)
	}
	return string(data)
}

func readCatalog(t *testing.T, storePath string) []catalog.Entry {
	t.Helper()
	data, err := os.ReadFile(storePath)
	if err != nil {
		t.Fatalf("reading store: %v", err)
	}
	var doc map[string]string
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("store is not a JSON object: %v", err)
	}
	var entries []catalog.Entry
	if err := json.Unmarshal([]byte(doc[catalog.DefaultKey]), &entries); err != nil {
		t.Fatalf("catalog is not a JSON array: %v", err)
	}
	return entries
}

func TestRecordAndPersist(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "sounds.json")
	r := runBoard(t, storePath, cmds("REC", "STOP clap", "QUIT"), "--test", silencePath)

	if !strings.Contains(r.output, `SAVED 0 "clap" 22050`) {
		t.Fatalf("unexpected output:\n%s", r.output)
	}
	entries := readCatalog(t, storePath)
	if len(entries) != 1 || entries[0].Name != "clap" {
		t.Fatalf("entries = %+v", entries)
	}
	payload, err := entries[0].Payload()
	if err != nil {
		t.Fatalf("stored data does not decode: %v", err)
	}
	if string(payload[:4]) != "RIFF" {
		t.Errorf("payload starts with %q, want RIFF", payload[:4])
	}
	pcm, err := clip.Decode(payload)
	if err != nil {
		t.Fatal(err)
	}
	if pcm.Frames() != 22050 {
		t.Errorf("frames = %d, want 22050", pcm.Frames())
	}

	diag := readLog(t, r.logDir, "diagnostics_log.txt")
	for _, want := range []string{"session_start", "sound_saved", "session_end"} {
		if !strings.Contains(diag, want) {
			t.Errorf("expected %s in diagnostics", want)
		}
	}
}

func TestOrderSurvivesRestart(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "sounds.json")
	runBoard(t, storePath, cmds("REC", "STOP one", "REC", "STOP two", "QUIT"), "--test", silencePath)
	r := runBoard(t, storePath, cmds("REC", "STOP three", "LIST", "QUIT"), "--test", silencePath)

	for i, name := range []string{"one", "two", "three"} {
		want := fmt.Sprintf("SOUND %d %q wav", i, name)
		if !strings.Contains(r.output, want) {
			t.Errorf("missing %q in:\n%s", want, r.output)
		}
	}
	if got := len(readCatalog(t, storePath)); got != 3 {
		t.Errorf("stored %d sounds, want 3", got)
	}
}

func TestPlayback(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "sounds.json")
	r := runBoard(t, storePath, cmds("REC", "STOP", "PLAY 0", "WAIT", "QUIT"), "--test", silencePath)
	if !strings.Contains(r.output, "PLAYED 0") || !strings.Contains(r.output, "PLAYS 1") {
		t.Fatalf("unexpected output:\n%s", r.output)
	}
	if !strings.Contains(readLog(t, r.logDir, "diagnostics_log.txt"), "sound_played") {
		t.Error("expected sound_played in diagnostics")
	}
}

func TestCorruptStoreStartsEmpty(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "sounds.json")
	if err := os.WriteFile(storePath, []byte(`{"sounds":"not json at all"}`), 0644); err != nil {
		t.Fatal(err)
	}
	r := runBoard(t, storePath, cmds("LIST", "REC", "STOP fresh", "QUIT"), "--test", silencePath)
	if !strings.Contains(r.output, "END durable=true") {
		t.Fatalf("unexpected output:\n%s", r.output)
	}
	entries := readCatalog(t, storePath)
	if len(entries) != 1 || entries[0].Name != "fresh" {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestUnwritableStoreIsSessionOnly(t *testing.T) {
	dir := t.TempDir()
	// A directory where the store file should be makes every write fail.
	storePath := filepath.Join(dir, "sounds.json")
	if err := os.Mkdir(storePath, 0755); err != nil {
		t.Fatal(err)
	}
	r := runBoard(t, storePath, cmds("REC", "STOP kept", "LIST", "PLAY 0", "WAIT", "QUIT"), "--test", silencePath)
	for _, want := range []string{`SOUND 0 "kept" wav`, "END durable=false", "PLAYED 0"} {
		if !strings.Contains(r.output, want) {
			t.Errorf("missing %q in:\n%s", want, r.output)
		}
	}
	if !strings.Contains(readLog(t, r.logDir, "diagnostics_log.txt"), "storage_unavailable") {
		t.Error("expected storage_unavailable in diagnostics")
	}
}

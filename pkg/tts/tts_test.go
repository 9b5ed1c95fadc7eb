package tts

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestOpenAISynthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" {
			t.Errorf("path = %q, want /audio/speech", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}

		var payload map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
			return
		}
		if payload["input"] != "Hello there" {
			t.Errorf("input = %v", payload["input"])
		}
		if payload["response_format"] != "wav" {
			t.Errorf("response_format = %v, want wav", payload["response_format"])
		}
		if payload["voice"] != VoiceNova {
			t.Errorf("voice = %v, want %s", payload["voice"], VoiceNova)
		}

		w.Write([]byte("RIFFaudio"))
	}))
	defer server.Close()

	p, err := NewOpenAI(
		WithAPIKey("test-key"),
		WithBaseURL(server.URL),
		WithVoice(VoiceNova),
		WithOutputFormat(EncodingWAV),
	)
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}
	defer p.Close()

	res, err := p.Synthesize(context.Background(), "Hello there")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(res.Audio) != "RIFFaudio" {
		t.Errorf("Audio = %q", res.Audio)
	}
	if res.Format.Encoding != EncodingWAV {
		t.Errorf("Encoding = %q, want wav", res.Format.Encoding)
	}
	if res.CharCount != len("Hello there") {
		t.Errorf("CharCount = %d", res.CharCount)
	}
}

func TestOpenAIRequiresKey(t *testing.T) {
	if _, err := NewOpenAI(); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("err = %v, want ErrNoAPIKey", err)
	}
}

func TestOpenAIEmptyText(t *testing.T) {
	p, err := NewOpenAI(WithAPIKey("k"), WithBaseURL("http://127.0.0.1:1"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Synthesize(context.Background(), "   "); !errors.Is(err, ErrEmptyText) {
		t.Errorf("err = %v, want ErrEmptyText", err)
	}
}

func TestOpenAIRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":{"message":"busy"}}`))
			return
		}
		w.Write([]byte("mp3"))
	}))
	defer server.Close()

	p, _ := NewOpenAI(WithAPIKey("k"), WithBaseURL(server.URL), WithRetry(3, time.Millisecond))
	res, err := p.Synthesize(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(res.Audio) != "mp3" {
		t.Errorf("Audio = %q", res.Audio)
	}
	if hits.Load() != 3 {
		t.Errorf("hits = %d, want 3", hits.Load())
	}
}

func TestOpenAIUnauthorized(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","code":"invalid_api_key"}}`))
	}))
	defer server.Close()

	p, _ := NewOpenAI(WithAPIKey("k"), WithBaseURL(server.URL), WithRetry(3, time.Millisecond))
	_, err := p.Synthesize(context.Background(), "hi")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if !apiErr.IsUnauthorized() || apiErr.IsRetryable() {
		t.Errorf("unexpected classification: %+v", apiErr)
	}
	if apiErr.Code != "invalid_api_key" || apiErr.Message != "bad key" {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if hits.Load() != 1 {
		t.Errorf("hits = %d, want 1", hits.Load())
	}
}

func TestChainFallsBack(t *testing.T) {
	failing := WithError(errors.New("down"))
	working := NewMock()

	chain, err := NewChain(failing, working)
	if err != nil {
		t.Fatal(err)
	}

	res, err := chain.Synthesize(context.Background(), "fallback")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(res.Audio) != "fallback" {
		t.Errorf("Audio = %q", res.Audio)
	}
	if failing.CallCount("Synthesize") != 1 || working.CallCount("Synthesize") != 1 {
		t.Errorf("calls: failing=%d working=%d", failing.CallCount("Synthesize"), working.CallCount("Synthesize"))
	}
}

func TestChainAllFail(t *testing.T) {
	e1, e2 := errors.New("one"), errors.New("two")
	chain, _ := NewChain(WithError(e1), WithError(e2))

	_, err := chain.Synthesize(context.Background(), "x")

	var chainErr *ChainError
	if !errors.As(err, &chainErr) {
		t.Fatalf("err = %v, want *ChainError", err)
	}
	if !errors.Is(err, e1) || !errors.Is(err, e2) {
		t.Errorf("chain error does not wrap both causes: %v", err)
	}
	if err := chain.Health(context.Background()); err == nil {
		t.Error("Health() = nil, want error when every provider is down")
	}
}

func TestNewChainEmpty(t *testing.T) {
	if _, err := NewChain(); !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("err = %v, want ErrProviderUnavailable", err)
	}
}

func TestChainStopsOnEmptyText(t *testing.T) {
	first := &Mock{SynthesizeFunc: func(context.Context, string) (*AudioResult, error) {
		return nil, WrapError("first", ErrEmptyText)
	}}
	second := NewMock()

	chain, _ := NewChain(first, second)
	if _, err := chain.Synthesize(context.Background(), " "); !errors.Is(err, ErrEmptyText) {
		t.Errorf("err = %v, want ErrEmptyText", err)
	}
	if second.CallCount("Synthesize") != 0 {
		t.Error("blank text reached the second engine")
	}
}

func TestChainHealthAndClose(t *testing.T) {
	closeErr := errors.New("close failed")
	down := WithError(errors.New("offline"))
	down.CloseFunc = func() error { return closeErr }
	local := NewMock()

	chain, _ := NewChain(down, local)
	if err := chain.Health(context.Background()); err != nil {
		t.Errorf("Health() = %v, want nil with one usable engine", err)
	}
	if err := chain.Close(); !errors.Is(err, closeErr) {
		t.Errorf("Close() = %v, want close error", err)
	}
	if local.CallCount("Close") != 1 {
		t.Error("second engine was not closed")
	}
}

func TestMockRecordsTexts(t *testing.T) {
	m := NewMock()
	res, err := m.Synthesize(context.Background(), "Llama online.")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	m.Synthesize(context.Background(), "Goodbye!")

	if got := m.Texts(); len(got) != 2 || got[0] != "Llama online." || got[1] != "Goodbye!" {
		t.Errorf("Texts() = %q", got)
	}

	// Mock audio is playable PCM.
	s, format, err := Decode(res)
	if err != nil {
		t.Fatalf("Decode mock audio: %v", err)
	}
	defer s.Close()
	if format.SampleRate != MockSampleRate {
		t.Errorf("SampleRate = %d, want %d", format.SampleRate, MockSampleRate)
	}

	m.Reset()
	if m.CallCount("Synthesize") != 0 || len(m.Texts()) != 0 {
		t.Error("Reset did not clear the mock")
	}
}

// fakeEngine writes a shell script that records its arguments and prints
// a fixed body, standing in for espeak-ng.
func fakeEngine(t *testing.T, body string, exit int) (bin, argsFile string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script engine requires a POSIX shell")
	}

	dir := t.TempDir()
	bin = filepath.Join(dir, "espeak-ng")
	argsFile = filepath.Join(dir, "args")

	script := "#!/bin/sh\n" +
		"for a in \"$@\"; do printf '%s\\n' \"$a\" >> " + argsFile + "; done\n" +
		"printf '%s' '" + body + "'\n" +
		"exit " + strconv.Itoa(exit) + "\n"
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return bin, argsFile
}

func TestEspeakSynthesize(t *testing.T) {
	bin, argsFile := fakeEngine(t, "RIFFwav", 0)

	e, err := NewEspeak(WithBinary(bin), WithRate(150), WithVoice("en-us"))
	if err != nil {
		t.Fatalf("NewEspeak: %v", err)
	}
	if e.Binary() != bin {
		t.Errorf("Binary() = %q, want %q", e.Binary(), bin)
	}

	res, err := e.Synthesize(context.Background(), "-hello world")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(res.Audio) != "RIFFwav" {
		t.Errorf("Audio = %q", res.Audio)
	}
	if res.Format.Encoding != EncodingWAV {
		t.Errorf("Encoding = %q", res.Format.Encoding)
	}

	raw, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatal(err)
	}
	got := strings.Split(strings.TrimSpace(string(raw)), "\n")
	want := []string{"--stdout", "-s", "150", "-v", "en-us", "--", "-hello world"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("args = %q, want %q", got, want)
	}
}

func TestEspeakFailure(t *testing.T) {
	bin, _ := fakeEngine(t, "", 1)

	e, err := NewEspeak(WithBinary(bin))
	if err != nil {
		t.Fatal(err)
	}
	var perr *ProviderError
	if _, err := e.Synthesize(context.Background(), "hi"); !errors.As(err, &perr) {
		t.Errorf("err = %v, want *ProviderError", err)
	}
}

func TestEspeakNotFound(t *testing.T) {
	_, err := NewEspeak(WithBinary(filepath.Join(t.TempDir(), "missing-engine")))
	if !errors.Is(err, ErrEngineNotFound) {
		t.Errorf("err = %v, want ErrEngineNotFound", err)
	}
}

// pcmWAV builds a mono 16-bit PCM WAV file of n silent samples.
func pcmWAV(sampleRate, n int) []byte {
	var buf bytes.Buffer
	dataLen := n * 2
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(make([]byte, dataLen))
	return buf.Bytes()
}

func TestDecodeWAV(t *testing.T) {
	res := &AudioResult{
		Audio:  pcmWAV(22050, 100),
		Format: AudioFormat{Encoding: EncodingWAV},
	}

	s, format, err := Decode(res)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	defer s.Close()

	if format.SampleRate != 22050 {
		t.Errorf("SampleRate = %d, want 22050", format.SampleRate)
	}
	if format.NumChannels != 1 {
		t.Errorf("NumChannels = %d, want 1", format.NumChannels)
	}
	if s.Len() != 100 {
		t.Errorf("Len() = %d, want 100", s.Len())
	}
}

func TestDecodeRejectsUnknownEncoding(t *testing.T) {
	_, _, err := Decode(&AudioResult{Audio: []byte("x"), Format: AudioFormat{Encoding: "ogg"}})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
	if _, _, err := Decode(nil); err == nil {
		t.Error("Decode(nil) = nil error")
	}
}

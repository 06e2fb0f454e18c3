package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/reesdraminski/soundboard/audio"
	"github.com/reesdraminski/soundboard/board"
	"github.com/reesdraminski/soundboard/clip"
	"github.com/reesdraminski/soundboard/player"
)

// runTestMode drives a board from stdin with the microphone replaced by a
// WAV file and the speakers by a recording sink. One command per line:
//
//	REC          start recording
//	STOP [name]  stop and save under name
//	PLAY i       play sound i (0-based) in the background
//	WAIT         wait for background plays to finish
//	LIST         print the catalog, then END
//	RELOAD       reread the store
//	SLEEP ms
//	QUIT
func runTestMode(wavPath string) error {
	fakeCtx, err := audio.NewFakeContextFromWAV(wavPath, false)
	if err != nil {
		return fmt.Errorf("loading WAV: %w", err)
	}
	testCfg := cfg
	testCfg.Cues = false

	sink := &player.Fake{}
	s := openSession(testCfg, sessionOptions{capture: true, playback: true, audio: fakeCtx, sink: sink})
	defer s.Close()

	return driveBoard(s.board, sink, os.Stdin, os.Stdout)
}

func driveBoard(b *board.Board, sink *player.Fake, in io.Reader, out io.Writer) error {
	var plays sync.WaitGroup
	var outMu sync.Mutex
	reply := func(format string, args ...any) {
		outMu.Lock()
		defer outMu.Unlock()
		fmt.Fprintf(out, format+"\n", args...)
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		cmd, arg, _ := strings.Cut(line, " ")
		switch cmd {
		case "":
		case "REC":
			if err := b.StartRecording(); err != nil {
				reply("ERROR %v", err)
				continue
			}
			reply("RECORDING")
		case "STOP":
			res := <-b.StopRecording()
			if res.Err != nil {
				reply("ERROR %v", res.Err)
				continue
			}
			idx := b.Save(arg, res.Payload)
			reply("SAVED %d %q %d", idx, arg, res.Frames)
		case "PLAY":
			i, err := strconv.Atoi(arg)
			if err != nil {
				reply("ERROR bad index %q", arg)
				continue
			}
			plays.Add(1)
			go func() {
				defer plays.Done()
				if err := b.Play(context.Background(), i); err != nil {
					reply("ERROR %v", err)
					return
				}
				reply("PLAYED %d", i)
			}()
		case "WAIT":
			plays.Wait()
			reply("PLAYS %d", len(sink.Played()))
		case "LIST":
			for i, e := range b.Entries() {
				format := ""
				if payload, err := e.Payload(); err == nil {
					format = clip.Format(payload)
				}
				reply("SOUND %d %q %s %d", i, e.Name, format, len(e.Data))
			}
			reply("END durable=%t", b.Durable())
		case "RELOAD":
			reply("RELOADED %d", b.Reload())
		case "SLEEP":
			if ms, err := strconv.Atoi(arg); err == nil {
				time.Sleep(time.Duration(ms) * time.Millisecond)
			}
		case "QUIT":
			plays.Wait()
			return nil
		default:
			reply("ERROR unknown command %q", cmd)
		}
	}
	plays.Wait()
	return scanner.Err()
}

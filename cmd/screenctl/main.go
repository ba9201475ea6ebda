package main

// Submit a recording for screening and wait for the verdict:
//   go run ./cmd/screenctl -server http://localhost:8000 -file recording.wav -language en

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"screening-backend/internal/client"
)

func main() {
	var (
		serverURL = flag.String("server", "http://localhost:8000", "screening backend base URL")
		filePath  = flag.String("file", "", "path to the audio recording")
		language  = flag.String("language", "en", "language code of the recording")
		timeout   = flag.Duration("timeout", 30*time.Second, "per-request timeout")
	)
	flag.Parse()

	if *filePath == "" {
		log.Fatal("-file is required")
	}

	api, err := client.New(*serverURL, *timeout)
	if err != nil {
		log.Fatalf("client: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workDir, err := os.MkdirTemp("", "screenctl-*")
	if err != nil {
		log.Fatalf("temp dir: %v", err)
	}
	defer os.RemoveAll(workDir)

	recorder := client.NewRecorder(workDir)
	src, err := os.Open(*filePath)
	if err != nil {
		log.Fatalf("open recording: %v", err)
	}
	if _, err := recorder.Replace(filepath.Base(*filePath), src); err != nil {
		src.Close()
		log.Fatalf("stage recording: %v", err)
	}
	src.Close()

	if err := api.SelectLanguage(ctx, *language); err != nil {
		log.Fatalf("select language: %v", err)
	}

	uploader := &client.Uploader{API: api}
	token, err := uploader.Upload(ctx, recorder, *language)
	if err != nil {
		log.Fatalf("upload: %v", err)
	}
	log.Printf("uploaded, session token %s", token)

	session := client.NewSession(api, token)
	go func() {
		<-ctx.Done()
		if !session.State().Phase.Terminal() {
			log.Print("interrupt received, cancelling session")
			session.Cancel()
		}
	}()

	final := session.Run(ctx)
	switch final.Phase {
	case client.PhaseComplete:
		p := client.Present(final.Result.Label)
		fmt.Printf("%s\n\n%s\n%s\n", p.Title, p.Message, p.Recommendation)
		fmt.Printf("\nlabel=%s probability=%.3f\n", final.Result.Label, final.Result.Probability)
	case client.PhaseCancelled:
		fmt.Println("screening cancelled")
	case client.PhaseFailed:
		log.Fatalf("screening failed: %s", final.FailureMsg)
	default:
		log.Fatalf("session ended in unexpected phase %s", final.Phase)
	}
}

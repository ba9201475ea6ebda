package client

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
)

// probePayload is the small artifact sent to the connectivity check.
var probePayload = []byte("connection-probe")

// Uploader performs the two-phase upload handshake: a connectivity probe
// followed by the real recording. The analysis phase must not start unless
// the probe succeeds.
type Uploader struct {
	API *API
}

// Upload runs the handshake and returns the server-issued session token.
func (u *Uploader) Upload(ctx context.Context, rec *Recorder, languageCode string) (string, error) {
	path, ok := rec.Current()
	if !ok {
		return "", fmt.Errorf("no recording to upload")
	}

	if err := u.API.TestConnection(ctx, "probe.wav", bytes.NewReader(probePayload)); err != nil {
		return "", fmt.Errorf("connection check failed: %w", err)
	}

	audio, err := rec.Open()
	if err != nil {
		return "", err
	}
	defer audio.Close()

	token, err := u.API.UploadRecording(ctx, filepath.Base(path), languageCode, audio)
	if err != nil {
		return "", err
	}
	return token, nil
}

package screenings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()
	screening := Screening{
		Token:        "tok-1",
		RecordingID:  "rec-1",
		LanguageCode: "en",
		Status:       StatusQueued,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	mock.ExpectExec("INSERT INTO screenings").
		WithArgs(
			screening.Token,
			screening.RecordingID,
			screening.LanguageCode,
			screening.Status,
			nil, // label
			nil, // probability
			nil, // error_message
			screening.CreatedAt,
			nil, // started_at
			nil, // completed_at
			screening.UpdatedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), screening); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"token", "recording_id", "language_code", "status", "label", "probability",
		"error_message", "created_at", "started_at", "completed_at", "updated_at",
	}).AddRow("tok-1", "rec-1", "en", StatusCompleted, "AD", 0.9, nil, now, now, now, now)

	mock.ExpectQuery("FROM screenings WHERE token").
		WithArgs("tok-1").
		WillReturnRows(rows)

	screening, err := repo.GetByToken(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("GetByToken: %v", err)
	}
	if screening.Label != "AD" || screening.Probability != 0.9 {
		t.Fatalf("screening = %+v", screening)
	}
	if screening.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed", screening.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByTokenNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectQuery("FROM screenings WHERE token").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"token", "recording_id", "language_code", "status", "label", "probability",
			"error_message", "created_at", "started_at", "completed_at", "updated_at",
		}))

	if _, err := repo.GetByToken(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPGRepoUpdateStatusWithResult(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	update := StatusUpdate{
		Status:      StatusCompleted,
		Label:       "HC",
		Probability: 0.12,
		HasResult:   true,
	}

	mock.ExpectExec("UPDATE screenings SET").
		WithArgs("tok-1", update.Status, update.HasResult, update.Label, update.Probability, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateStatus(context.Background(), "tok-1", update); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateStatusUnknownTokenIsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectExec("UPDATE screenings SET").
		WithArgs("missing", StatusCancelled, false, "", 0.0, nil).
		WillReturnResult(sqlmock.NewResult(0, 0))
	// The zero-row update triggers a lookup to tell a missing row apart from
	// a terminal one.
	mock.ExpectQuery("FROM screenings WHERE token").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"token", "recording_id", "language_code", "status", "label", "probability",
			"error_message", "created_at", "started_at", "completed_at", "updated_at",
		}))

	err = repo.UpdateStatus(context.Background(), "missing", StatusUpdate{Status: StatusCancelled})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPGRepoUpdateStatusTerminalRowIsLostRace(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()

	// The guarded UPDATE skips rows already in a terminal status.
	mock.ExpectExec("UPDATE screenings SET").
		WithArgs("tok-1", StatusCompleted, true, "HC", 0.1, nil).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM screenings WHERE token").
		WithArgs("tok-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"token", "recording_id", "language_code", "status", "label", "probability",
			"error_message", "created_at", "started_at", "completed_at", "updated_at",
		}).AddRow("tok-1", "rec-1", "en", StatusCancelled, nil, nil, nil, now, now, now, now))

	err = repo.UpdateStatus(context.Background(), "tok-1", StatusUpdate{
		Status:      StatusCompleted,
		Label:       "HC",
		Probability: 0.1,
		HasResult:   true,
	})
	if !errors.Is(err, ErrTerminal) {
		t.Fatalf("err = %v, want ErrTerminal", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

// Package drive uploads receipt files to a Google Drive folder and hands back
// public share links for the Clients collection.
package drive

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"sales-tracker-bot/internal/domain/ports/adapter"
)

var _ adapter.ReceiptStore = (*ReceiptStore)(nil)

type ReceiptStore struct {
	svc    *drivev3.Service
	folder string
	log    *zerolog.Logger

	mu       sync.Mutex
	folderID string // resolved lazily, cached for the process lifetime
}

func NewReceiptStore(ctx context.Context, credentialsFile, folder string, logger *zerolog.Logger) (*ReceiptStore, error) {
	svc, err := drivev3.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(drivev3.DriveScope, drivev3.DriveFileScope),
	)
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}
	return &ReceiptStore{svc: svc, folder: folder, log: logger}, nil
}

// ensureFolder finds the receipts folder, creating it on first use.
func (s *ReceiptStore) ensureFolder(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.folderID != "" {
		return s.folderID, nil
	}

	query := fmt.Sprintf("name='%s' and mimeType='application/vnd.google-apps.folder'", s.folder)
	list, err := s.svc.Files.List().Q(query).Fields("files(id, name)").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("list folders: %w", err)
	}
	if len(list.Files) > 0 {
		s.folderID = list.Files[0].Id
		return s.folderID, nil
	}

	created, err := s.svc.Files.Create(&drivev3.File{
		Name:     s.folder,
		MimeType: "application/vnd.google-apps.folder",
	}).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create folder: %w", err)
	}
	s.log.Info().Str("folder", s.folder).Str("id", created.Id).Msg("created receipts folder")
	s.folderID = created.Id
	return s.folderID, nil
}

// Save uploads the file, makes it world-readable and returns its share URL.
func (s *ReceiptStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	folderID, err := s.ensureFolder(ctx)
	if err != nil {
		return "", err
	}

	file, err := s.svc.Files.Create(&drivev3.File{
		Name:    filename,
		Parents: []string{folderID},
	}).Media(r).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("upload receipt: %w", err)
	}

	_, err = s.svc.Permissions.Create(file.Id, &drivev3.Permission{
		Type: "anyone",
		Role: "reader",
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("share receipt: %w", err)
	}

	return fmt.Sprintf("https://drive.google.com/file/d/%s/view", file.Id), nil
}

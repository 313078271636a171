package archive

import (
	"context"
	"fmt"
	"os"
	"sync"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/ronypadmani/AI-meeting-Assistant/internal/annotate"
	"github.com/ronypadmani/AI-meeting-Assistant/internal/storage"
)

// DriveArchiver exports finalized meeting summaries as markdown and mirrors
// them to a Google Drive folder as Google Docs. Re-archiving a session updates
// the existing document instead of creating a duplicate.
type DriveArchiver struct {
	service  *drive.Service
	writer   *storage.Writer
	folderID string
	fileIDs  map[string]string
	mu       sync.Mutex
}

func NewDriveArchiver(ctx context.Context, credPath, folderID string, writer *storage.Writer) (*DriveArchiver, error) {
	creds, err := os.ReadFile(credPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	config, err := google.CredentialsFromJSONWithTypeAndParams(ctx, creds, google.ServiceAccount, google.CredentialsParams{Scopes: []string{drive.DriveFileScope}})
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	svc, err := drive.NewService(ctx, option.WithCredentials(config))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return &DriveArchiver{
		service:  svc,
		writer:   writer,
		folderID: folderID,
		fileIDs:  make(map[string]string),
	}, nil
}

func (a *DriveArchiver) Archive(ctx context.Context, summary annotate.MeetingSummary) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.writer.Export(summary); err != nil {
		return fmt.Errorf("export markdown: %w", err)
	}

	f, err := os.Open(a.writer.Path(summary.SessionID))
	if err != nil {
		return fmt.Errorf("open export: %w", err)
	}
	defer func() { _ = f.Close() }()

	name := fmt.Sprintf("meeting-%s", summary.SessionID)

	if fileID, ok := a.fileIDs[summary.SessionID]; ok {
		_, err = a.service.Files.Update(fileID, &drive.File{}).Context(ctx).Media(f).Do()
		if err != nil {
			return fmt.Errorf("drive update: %w", err)
		}
		return nil
	}

	doc, err := a.service.Files.Create(&drive.File{
		Name:     name,
		MimeType: "application/vnd.google-apps.document",
		Parents:  []string{a.folderID},
	}).Context(ctx).Media(f).Do()
	if err != nil {
		return fmt.Errorf("drive create: %w", err)
	}

	a.fileIDs[summary.SessionID] = doc.Id
	return nil
}

// LocalArchiver writes the markdown export without mirroring to Drive. It is
// the fallback when no Drive credentials are configured.
type LocalArchiver struct {
	writer *storage.Writer
}

func NewLocalArchiver(writer *storage.Writer) *LocalArchiver {
	return &LocalArchiver{writer: writer}
}

func (a *LocalArchiver) Archive(_ context.Context, summary annotate.MeetingSummary) error {
	if err := a.writer.Export(summary); err != nil {
		return fmt.Errorf("export markdown: %w", err)
	}
	return nil
}

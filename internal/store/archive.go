package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"meeting-intel/internal/common/logger"
	"meeting-intel/internal/models"
)

var ErrArchiveFailed = errors.New("DOSSIER_ARCHIVE_FAILED")

type archivedDossier struct {
	*models.AnalyzeResult
	IdentityKey string    `json:"identity_key"`
	ArchivedAt  time.Time `json:"archived_at"`
}

// DossierArchive indexes accepted dossiers in Elasticsearch, one document
// per identity, so later runs overwrite earlier ones.
type DossierArchive struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
	now    func() time.Time
}

func NewDossierArchive(client *elasticsearch.Client, index string, log logger.Logger) *DossierArchive {
	return &DossierArchive{
		client: client,
		index:  index,
		logger: logger.Component(log, "dossier_archive"),
		now:    time.Now,
	}
}

func (a *DossierArchive) Archive(ctx context.Context, key string, result *models.AnalyzeResult) error {
	body, err := json.Marshal(archivedDossier{
		AnalyzeResult: result,
		IdentityKey:   key,
		ArchivedAt:    a.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrArchiveFailed, err)
	}

	req := esapi.IndexRequest{
		Index:      a.index,
		DocumentID: key,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, a.client)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArchiveFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("%w: %s", ErrArchiveFailed, res.Status())
	}
	a.logger.Debug("dossier archived", map[string]interface{}{"index": a.index, "identity": key})
	return nil
}

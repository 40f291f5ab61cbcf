package messages

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/whisperbox/internal/common"
	"github.com/dmitrijs2005/whisperbox/internal/server/models"
	"github.com/dmitrijs2005/whisperbox/internal/server/objstore"
	"github.com/google/uuid"
)

const (
	viewsDir = "user_messages"
	logDir   = "messages"
)

// S3Repository stores each copy of a message as its own object:
// user_messages/{owner}/{partner}/{id} for the views and messages/{id}
// for the log. The copies are written one by one, so Append compensates
// for a failure midway by deleting what it already wrote.
type S3Repository struct {
	store *objstore.Store
	opts  options
}

func NewS3Repository(store *objstore.Store, opts ...Option) *S3Repository {
	return &S3Repository{store: store, opts: newOptions(opts)}
}

func (r *S3Repository) viewKey(v view, id string) string {
	return r.store.Key(viewsDir, url.PathEscape(v.owner), url.PathEscape(v.partner), id)
}

func (r *S3Repository) ownerPrefix(owner string) string {
	return r.store.Key(viewsDir, url.PathEscape(owner)) + "/"
}

// Append writes sender view, receiver view and log entry in that order.
// On failure the already written copies are deleted; if that succeeds the
// error is common.ErrStoreUnavailable, otherwise common.ErrPartialMirrorWrite.
func (r *S3Repository) Append(ctx context.Context, senderID, receiverID, ciphertext string) (*models.Message, error) {
	msg := r.opts.newMessage(senderID, receiverID, ciphertext)
	id := msg.ID.String()

	var keys []string
	for _, v := range views(msg) {
		keys = append(keys, r.viewKey(v, id))
	}
	keys = append(keys, r.store.Key(logDir, id))

	for i, key := range keys {
		if err := r.store.Create(ctx, key, msg); err != nil {
			if errors.Is(err, objstore.ErrPreconditionFailed) {
				err = fmt.Errorf("%w: %s already exists", common.ErrStoreUnavailable, key)
			}
			return nil, r.compensate(ctx, keys[:i], err)
		}
	}
	return msg, nil
}

func (r *S3Repository) compensate(ctx context.Context, written []string, cause error) error {
	// the caller's context may be the reason the write failed
	ctx = context.WithoutCancel(ctx)

	var failed []error
	for _, key := range written {
		if err := r.store.Delete(ctx, key); err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%w: %w", common.ErrPartialMirrorWrite, errors.Join(append([]error{cause}, failed...)...))
	}
	return cause
}

func (r *S3Repository) GetThread(ctx context.Context, owner, partner string) ([]*models.Message, error) {
	prefix := r.store.Key(viewsDir, url.PathEscape(owner), url.PathEscape(partner)) + "/"
	keys, err := r.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	msgs := []*models.Message{}
	for _, key := range keys {
		m, err := r.load(ctx, key)
		if err != nil {
			return nil, err
		}
		if m != nil {
			msgs = append(msgs, m)
		}
	}
	models.SortMessages(msgs)
	return msgs, nil
}

func (r *S3Repository) GetLatestPerPartner(ctx context.Context, owner string) (map[string]*models.Message, error) {
	threads, err := r.GetAllThreads(ctx, owner)
	if err != nil {
		return nil, err
	}
	return latestOf(threads), nil
}

func (r *S3Repository) GetAllThreads(ctx context.Context, owner string) (map[string][]*models.Message, error) {
	prefix := r.ownerPrefix(owner)
	keys, err := r.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	threads := make(map[string][]*models.Message)
	for _, key := range keys {
		escaped, _, ok := strings.Cut(strings.TrimPrefix(key, prefix), "/")
		if !ok {
			continue
		}
		partner, err := url.PathUnescape(escaped)
		if err != nil {
			continue
		}

		m, err := r.load(ctx, key)
		if err != nil {
			return nil, err
		}
		if m != nil {
			threads[partner] = append(threads[partner], m)
		}
	}
	for _, msgs := range threads {
		models.SortMessages(msgs)
	}
	return threads, nil
}

// load reads one view. Records that vanished or do not have the shape of a
// message are skipped (nil, nil).
func (r *S3Repository) load(ctx context.Context, key string) (*models.Message, error) {
	m := &models.Message{}
	err := r.store.Get(ctx, key, m)
	switch {
	case errors.Is(err, common.ErrorNotFound), errors.Is(err, objstore.ErrMalformed):
		return nil, nil
	case err != nil:
		return nil, err
	}
	if m.ID == uuid.Nil || m.SenderID == "" || m.ReceiverID == "" {
		return nil, nil
	}
	m.Timestamp = m.Timestamp.UTC()
	return m, nil
}

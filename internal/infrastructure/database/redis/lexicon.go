package redis

import (
	"context"
	stderrors "errors"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Opinion-Intelligence/internal/intelligence/common"
	"github.com/turtacn/Opinion-Intelligence/internal/intelligence/lexicon"
	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

const lexiconKeySegment = "lexicon:"

// Lexicon is a polarity dictionary stored as a Redis hash from normalized
// form to polarity, under "<prefix>lexicon:<name>".  It lets several server
// processes share one dictionary that can be updated without a restart.
type Lexicon struct {
	client *Client
	name   string
	key    string
	logger logging.Logger
}

// NewLexicon binds the dictionary name to client.
func NewLexicon(client *Client, name string, log logging.Logger) *Lexicon {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Lexicon{
		client: client,
		name:   name,
		key:    LexiconKey(client.KeyPrefix(), name),
		logger: log,
	}
}

// LexiconKey returns the hash key holding dictionary name.
func LexiconKey(prefix, name string) string {
	return prefix + lexiconKeySegment + name
}

// Name returns the dictionary name recorded as the sentiment resource.
func (l *Lexicon) Name() string { return l.name }

// Key returns the hash key.
func (l *Lexicon) Key() string { return l.key }

// Lookup reads the polarity of form.  Missing fields and "O" are misses.
func (l *Lexicon) Lookup(ctx context.Context, form string) (string, bool, error) {
	field := common.NormalizeForm(form)
	if field == "" {
		return "", false, nil
	}
	pol, err := l.client.HGet(ctx, l.key, field).Result()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, errors.Wrap(err, errors.ErrCodeCacheError, "dictionary lookup failed").
			WithDetail("key=" + l.key)
	}
	if pol == "" || pol == lexicon.Outside {
		return "", false, nil
	}
	return pol, true, nil
}

// Len returns the number of stored forms.
func (l *Lexicon) Len(ctx context.Context) (int64, error) {
	n, err := l.client.HLen(ctx, l.key).Result()
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeCacheError, "failed to size dictionary")
	}
	return n, nil
}

// Import replaces the stored dictionary with entries in one transaction.
// Keys are normalized the same way lookups are.
func (l *Lexicon) Import(ctx context.Context, entries map[string]string) (int, error) {
	values := make([]interface{}, 0, 2*len(entries))
	for form, pol := range entries {
		key := common.NormalizeForm(form)
		if key == "" || pol == "" {
			continue
		}
		values = append(values, key, pol)
	}

	if l.client.isClosed() {
		return 0, ErrClientClosed
	}
	pipe := l.client.TxPipeline()
	pipe.Del(ctx, l.key)
	if len(values) > 0 {
		pipe.HSet(ctx, l.key, values...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeCacheError, "failed to import dictionary").
			WithDetail("key=" + l.key)
	}

	n := len(values) / 2
	l.logger.Info("Dictionary imported",
		logging.String("dictionary", l.name),
		logging.String("key", l.key),
		logging.Int("entries", n))
	return n, nil
}

var _ common.PolarityLexicon = (*Lexicon)(nil)

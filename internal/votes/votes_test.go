package votes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/stockwatch/internal/identity"
	"github.com/rewired-gh/stockwatch/internal/models"
)

// voteBackend is a minimal fake of the vote backend: per-user choices with
// a derived aggregate, like the real thing.
type voteBackend struct {
	mu      sync.Mutex
	choices map[string]models.Sentiment // userID -> choice
	failPut bool
}

func (b *voteBackend) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()

		if strings.HasSuffix(r.URL.Path, "/aggregate") {
			var bulls, bears int
			for _, choice := range b.choices {
				if choice == models.SentimentBullish {
					bulls++
				} else {
					bears++
				}
			}
			json.NewEncoder(w).Encode(map[string]int{"bulls": bulls, "bears": bears})
			return
		}

		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		userID := parts[len(parts)-1]

		switch r.Method {
		case http.MethodGet:
			if choice, ok := b.choices[userID]; ok {
				json.NewEncoder(w).Encode(map[string]models.Sentiment{"sentiment": choice})
				return
			}
			w.Write([]byte(`{"sentiment":null}`))
		case http.MethodPut:
			if b.failPut {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			var payload struct {
				Sentiment models.Sentiment `json:"sentiment"`
			}
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if b.choices == nil {
				b.choices = make(map[string]models.Sentiment)
			}
			b.choices[userID] = payload.Sentiment
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

func newBackedAggregator(t *testing.T, backend *voteBackend, resolver identity.Resolver) *Aggregator {
	t.Helper()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)
	return NewAggregator(NewClient(srv.URL, srv.Client()), resolver, "AAPL")
}

func TestAggregatorZeroVotesIsFiftyFifty(t *testing.T) {
	a := newBackedAggregator(t, &voteBackend{}, identity.Anonymous())

	// Even before any refresh the state is well-defined.
	state := a.State()
	assert.Equal(t, 50, state.Aggregate.BullPct)
	assert.Equal(t, 50, state.Aggregate.BearPct)
	assert.Nil(t, state.MyVote)

	require.NoError(t, a.Refresh(context.Background()))
	state = a.State()
	assert.Equal(t, 50, state.Aggregate.BullPct)
	assert.Equal(t, 50, state.Aggregate.BearPct)
}

func TestAggregatorRefreshReadsOwnVote(t *testing.T) {
	backend := &voteBackend{choices: map[string]models.Sentiment{
		"user-1": models.SentimentBullish,
		"user-2": models.SentimentBearish,
	}}
	a := newBackedAggregator(t, backend, identity.User("user-1"))

	require.NoError(t, a.Refresh(context.Background()))

	state := a.State()
	assert.Equal(t, 1, state.Aggregate.Bulls)
	assert.Equal(t, 1, state.Aggregate.Bears)
	assert.Equal(t, 50, state.Aggregate.BullPct)
	require.NotNil(t, state.MyVote)
	assert.Equal(t, models.SentimentBullish, *state.MyVote)
}

func TestVoteSetsChoiceAndRefetchesAggregate(t *testing.T) {
	backend := &voteBackend{}
	a := newBackedAggregator(t, backend, identity.User("user-1"))

	require.NoError(t, a.Vote(context.Background(), models.SentimentBullish))

	state := a.State()
	require.NotNil(t, state.MyVote)
	assert.Equal(t, models.SentimentBullish, *state.MyVote)

	// The aggregate comes from the server, not local recomputation.
	assert.Equal(t, 1, state.Aggregate.Bulls)
	assert.Equal(t, 100, state.Aggregate.BullPct)
	assert.Equal(t, 0, state.Aggregate.BearPct)
	if sum := state.Aggregate.BullPct + state.Aggregate.BearPct; sum < 99 || sum > 101 {
		t.Errorf("percentages sum %d outside rounding slack of 100", sum)
	}
	assert.GreaterOrEqual(t, state.Aggregate.BullPct, state.Aggregate.BearPct)
}

func TestVoteReplacesPreviousChoice(t *testing.T) {
	backend := &voteBackend{}
	a := newBackedAggregator(t, backend, identity.User("user-1"))

	require.NoError(t, a.Vote(context.Background(), models.SentimentBullish))
	require.NoError(t, a.Vote(context.Background(), models.SentimentBearish))

	state := a.State()
	assert.Equal(t, 0, state.Aggregate.Bulls, "one user holds at most one choice")
	assert.Equal(t, 1, state.Aggregate.Bears)
	require.NotNil(t, state.MyVote)
	assert.Equal(t, models.SentimentBearish, *state.MyVote)
}

func TestVoteFailureLeavesStateUntouched(t *testing.T) {
	backend := &voteBackend{failPut: true}
	a := newBackedAggregator(t, backend, identity.User("user-1"))

	require.Error(t, a.Vote(context.Background(), models.SentimentBearish))

	state := a.State()
	assert.Nil(t, state.MyVote, "own vote is only set after the server accepts the write")
	assert.Equal(t, 50, state.Aggregate.BullPct)
}

func TestVoteRequiresIdentity(t *testing.T) {
	a := newBackedAggregator(t, &voteBackend{}, identity.Anonymous())
	assert.ErrorIs(t, a.Vote(context.Background(), models.SentimentBullish), ErrIdentityRequired)
}

func TestVoteRejectsUnknownSentiment(t *testing.T) {
	a := newBackedAggregator(t, &voteBackend{}, identity.User("user-1"))
	assert.Error(t, a.Vote(context.Background(), "neutral"))
}

package indexer

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/kikuomax/tweetscape-streams/internal/common"
	"github.com/kikuomax/tweetscape-streams/internal/dbx"
	"github.com/kikuomax/tweetscape-streams/internal/models"
	"github.com/kikuomax/tweetscape-streams/internal/repositories/accesstokens"
	"github.com/kikuomax/tweetscape-streams/internal/repositories/accounts"
	"github.com/kikuomax/tweetscape-streams/internal/repositories/media"
	"github.com/kikuomax/tweetscape-streams/internal/repositories/posts"
	"github.com/kikuomax/tweetscape-streams/internal/repositories/syncruns"
	"github.com/kikuomax/tweetscape-streams/internal/repositories/trackedaccounts"
	"github.com/kikuomax/tweetscape-streams/internal/twitter"
)

// memStore backs every fake repository.
type memStore struct {
	mu sync.Mutex

	accounts map[string]*models.Account
	media    map[string]*models.Media
	posts    map[string]*models.Post
	tracked  map[string]*trackedRow
	order    []string
	tokens   map[string]models.AccessToken
	runs     map[string]models.SyncRun

	watermarkWrites int
	tokenSaves      int
	upsertErr       error
	saveTokenErr    error
	runStates       map[string][]models.SyncState
}

type trackedRow struct {
	requesterID string
	watermark   models.Watermark
}

func newMemStore() *memStore {
	return &memStore{
		accounts:  map[string]*models.Account{},
		media:     map[string]*models.Media{},
		posts:     map[string]*models.Post{},
		tracked:   map[string]*trackedRow{},
		tokens:    map[string]models.AccessToken{},
		runs:      map[string]models.SyncRun{},
		runStates: map[string][]models.SyncState{},
	}
}

func (s *memStore) track(accountID, username, requesterID string, w models.Watermark) {
	s.accounts[accountID] = &models.Account{ID: accountID, Username: username}
	s.tracked[accountID] = &trackedRow{requesterID: requesterID, watermark: w}
	s.order = append(s.order, accountID)
}

func (s *memStore) watermarkOf(accountID string) models.Watermark {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracked[accountID].watermark
}

type fakeRepoManager struct {
	s *memStore
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error       { return nil }
func (m *fakeRepoManager) Accounts(dbx.DBTX) accounts.Repository               { return (*fakeAccounts)(m.s) }
func (m *fakeRepoManager) Media(dbx.DBTX) media.Repository                     { return (*fakeMedia)(m.s) }
func (m *fakeRepoManager) Posts(dbx.DBTX) posts.Repository                     { return (*fakePosts)(m.s) }
func (m *fakeRepoManager) TrackedAccounts(dbx.DBTX) trackedaccounts.Repository { return (*fakeTracked)(m.s) }
func (m *fakeRepoManager) AccessTokens(dbx.DBTX) accesstokens.Repository       { return (*fakeTokens)(m.s) }
func (m *fakeRepoManager) SyncRuns(dbx.DBTX) syncruns.Repository               { return (*fakeRuns)(m.s) }

type fakeAccounts memStore

func (f *fakeAccounts) Upsert(_ context.Context, in []*models.Account) error {
	s := (*memStore)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	for _, a := range in {
		s.accounts[a.ID] = a
	}
	return nil
}

func (f *fakeAccounts) Get(_ context.Context, id string) (*models.Account, error) {
	s := (*memStore)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return a, nil
}

type fakeMedia memStore

func (f *fakeMedia) Upsert(_ context.Context, in []*models.Media) error {
	s := (*memStore)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range in {
		s.media[m.MediaKey] = m
	}
	return nil
}

type fakePosts memStore

func (f *fakePosts) Upsert(_ context.Context, in []*models.Post) error {
	s := (*memStore)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range in {
		s.posts[p.ID] = p
	}
	return nil
}

func (f *fakePosts) CountByAuthor(_ context.Context, authorID string) (int, error) {
	s := (*memStore)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.posts {
		if p.AuthorID == authorID {
			n++
		}
	}
	return n, nil
}

type fakeTracked memStore

func (f *fakeTracked) Get(_ context.Context, accountID string) (*models.TrackedAccount, error) {
	s := (*memStore)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trackedLocked(accountID)
}

func (s *memStore) trackedLocked(accountID string) (*models.TrackedAccount, error) {
	row, ok := s.tracked[accountID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &models.TrackedAccount{
		Account:     *s.accounts[accountID],
		RequesterID: row.requesterID,
		Watermark:   row.watermark,
	}, nil
}

func (f *fakeTracked) List(context.Context) ([]*models.TrackedAccount, error) {
	s := (*memStore)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.TrackedAccount
	for _, id := range s.order {
		t, err := s.trackedLocked(id)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTracked) Create(_ context.Context, accountID, requesterID string) (bool, error) {
	s := (*memStore)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tracked[accountID]; ok {
		return false, nil
	}
	s.tracked[accountID] = &trackedRow{requesterID: requesterID}
	s.order = append(s.order, accountID)
	return true, nil
}

func (f *fakeTracked) SetWatermark(_ context.Context, accountID string, w models.Watermark) error {
	s := (*memStore)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := w.Validate(); err != nil {
		return err
	}
	row, ok := s.tracked[accountID]
	if !ok {
		return common.ErrorNotFound
	}
	row.watermark = w
	s.watermarkWrites++
	return nil
}

type fakeTokens memStore

func (f *fakeTokens) Get(_ context.Context, ownerID string) (*models.AccessToken, error) {
	s := (*memStore)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[ownerID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &t, nil
}

func (f *fakeTokens) Save(_ context.Context, t *models.AccessToken) error {
	s := (*memStore)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveTokenErr != nil {
		return s.saveTokenErr
	}
	s.tokens[t.OwnerID] = *t
	s.tokenSaves++
	return nil
}

type fakeRuns memStore

func (f *fakeRuns) Start(_ context.Context, run *models.SyncRun) error {
	s := (*memStore)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = *run
	s.runStates[run.ID] = append(s.runStates[run.ID], run.State)
	return nil
}

func (f *fakeRuns) Update(_ context.Context, run *models.SyncRun) error {
	s := (*memStore)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[run.ID]; !ok {
		return common.ErrorNotFound
	}
	s.runs[run.ID] = *run
	s.runStates[run.ID] = append(s.runStates[run.ID], run.State)
	return nil
}

func (f *fakeRuns) Get(_ context.Context, id string) (*models.SyncRun, error) {
	s := (*memStore)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &r, nil
}

type fakeTransactor struct{}

func (fakeTransactor) WithinTx(ctx context.Context, fn dbx.TxFunc) error {
	return fn(ctx, nil)
}

// fakeAPI serves pages per account keyed by pagination token. Tokens in
// valid are accepted; everything else is rejected with 401.
type fakeAPI struct {
	mu sync.Mutex

	pages   map[string]map[string]*models.Page
	users   map[string]models.Object
	valid   map[string]bool
	calls   []twitter.TimelineRequest
	refresh func(refreshToken string) (*twitter.TokenResponse, error)
}

func newFakeAPI(valid ...string) *fakeAPI {
	a := &fakeAPI{
		pages: map[string]map[string]*models.Page{},
		users: map[string]models.Object{},
		valid: map[string]bool{},
	}
	for _, v := range valid {
		a.valid[v] = true
	}
	return a
}

func (a *fakeAPI) addPage(accountID, token string, page *models.Page) {
	if a.pages[accountID] == nil {
		a.pages[accountID] = map[string]*models.Page{}
	}
	a.pages[accountID][token] = page
}

func (a *fakeAPI) Timeline(_ context.Context, accessToken string, req twitter.TimelineRequest) (*models.Page, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.valid[accessToken] {
		return nil, &twitter.HTTPError{StatusCode: 401, Title: "Unauthorized"}
	}
	a.calls = append(a.calls, req)
	p, ok := a.pages[req.AccountID][req.PaginationToken]
	if !ok {
		return &models.Page{}, nil
	}
	return p, nil
}

func (a *fakeAPI) UserByUsername(_ context.Context, accessToken, username string) (models.Object, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.valid[accessToken] {
		return nil, &twitter.HTTPError{StatusCode: 401}
	}
	u, ok := a.users[username]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", username, twitter.ErrNotFound)
	}
	return u, nil
}

func (a *fakeAPI) RefreshToken(_ context.Context, refreshToken, _, _ string) (*twitter.TokenResponse, error) {
	if a.refresh == nil {
		return nil, &twitter.HTTPError{StatusCode: 400, Title: "invalid_request"}
	}
	resp, err := a.refresh(refreshToken)
	if err == nil {
		a.mu.Lock()
		a.valid[resp.AccessToken] = true
		a.mu.Unlock()
	}
	return resp, err
}

type fakeArchive struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (f *fakeArchive) PutPage(_ context.Context, accountID, runID string, page int, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, fmt.Sprintf("%s/%s/%d", accountID, runID, page))
	return nil
}

func postObjects(authorID string, ids ...string) []models.Object {
	out := make([]models.Object, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.Object{"id": id, "author_id": authorID, "text": "post " + id})
	}
	return out
}

func token(owner, access string) models.AccessToken {
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return models.AccessToken{
		OwnerID:       owner,
		AccessSecret:  access,
		RefreshSecret: "refresh-" + owner,
		IssuedAt:      issued,
		UpdatedAt:     issued,
		TTL:           2 * time.Hour,
	}
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aoideee/kitobchi/internal/auth"
	"github.com/aoideee/kitobchi/internal/config"
	"github.com/aoideee/kitobchi/internal/data"
)

// memStore is an in-memory stand-in for the Postgres tables. It mirrors the
// constraints the handlers rely on: unique email, unique like, foreign keys
// and the approved-only public listing.
type memStore struct {
	mu         sync.Mutex
	nextID     int64
	clock      time.Time
	users      map[int64]*data.User
	books      map[int64]*data.Book
	likes      []*data.Like
	categories map[int64]*data.Category
	languages  map[int64]*data.Language
}

func newMemStore() *memStore {
	s := &memStore{
		clock:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		users:      map[int64]*data.User{},
		books:      map[int64]*data.Book{},
		categories: map[int64]*data.Category{},
		languages:  map[int64]*data.Language{},
	}
	s.categories[1] = &data.Category{ID: 1, Name: "Fiction", Slug: "fiction"}
	s.categories[2] = &data.Category{ID: 2, Name: "Science", Slug: "science"}
	s.languages[1] = &data.Language{ID: 1, Name: "English", Code: "en"}
	s.languages[2] = &data.Language{ID: 2, Name: "Uzbek", Code: "uz"}
	s.nextID = 100
	return s
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

// tick returns strictly increasing timestamps so ordering is deterministic.
func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *memStore) models() data.Models {
	return data.Models{
		Books:      fakeBooks{s},
		Users:      fakeUsers{s},
		Likes:      fakeLikes{s},
		Categories: fakeCategories{s},
		Languages:  fakeLanguages{s},
	}
}

func copyBook(b *data.Book) *data.Book {
	c := *b
	c.Images = append([]string{}, b.Images...)
	return &c
}

type fakeUsers struct{ s *memStore }

func (f fakeUsers) Insert(_ context.Context, u *data.User) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, existing := range f.s.users {
		if existing.Email == u.Email {
			return data.ErrDuplicateEmail
		}
	}
	u.ID = f.s.id()
	u.CreatedAt = f.s.tick()
	c := *u
	f.s.users[u.ID] = &c
	return nil
}

func (f fakeUsers) Get(_ context.Context, id int64) (*data.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	u, ok := f.s.users[id]
	if !ok {
		return nil, data.ErrRecordNotFound
	}
	c := *u
	return &c, nil
}

func (f fakeUsers) GetByEmail(_ context.Context, email string) (*data.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, u := range f.s.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, data.ErrRecordNotFound
}

func (f fakeUsers) Update(_ context.Context, u *data.User) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.users[u.ID]; !ok {
		return data.ErrRecordNotFound
	}
	c := *u
	f.s.users[u.ID] = &c
	return nil
}

type fakeBooks struct{ s *memStore }

func (f fakeBooks) checkRefs(b *data.Book) error {
	if _, ok := f.s.users[b.SellerID]; !ok {
		return data.ErrRecordNotFound
	}
	if b.CategoryID != nil {
		if _, ok := f.s.categories[*b.CategoryID]; !ok {
			return data.ErrRecordNotFound
		}
	}
	if b.LanguageID != nil {
		if _, ok := f.s.languages[*b.LanguageID]; !ok {
			return data.ErrRecordNotFound
		}
	}
	return nil
}

func (f fakeBooks) Insert(_ context.Context, b *data.Book) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.checkRefs(b); err != nil {
		return err
	}
	b.ID = f.s.id()
	if b.Status == "" {
		b.Status = data.StatusPending
	}
	b.CreatedAt = f.s.tick()
	b.UpdatedAt = b.CreatedAt
	f.s.books[b.ID] = copyBook(b)
	return nil
}

func (f fakeBooks) Get(_ context.Context, id int64) (*data.Book, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	b, ok := f.s.books[id]
	if !ok {
		return nil, data.ErrRecordNotFound
	}
	return copyBook(b), nil
}

func (f fakeBooks) Update(_ context.Context, b *data.Book) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	stored, ok := f.s.books[b.ID]
	if !ok {
		return data.ErrRecordNotFound
	}
	if err := f.checkRefs(b); err != nil {
		return err
	}
	c := copyBook(b)
	c.Status = stored.Status
	c.SellerID = stored.SellerID
	c.UpdatedAt = f.s.tick()
	f.s.books[b.ID] = c
	b.UpdatedAt = c.UpdatedAt
	return nil
}

func (f fakeBooks) Delete(_ context.Context, id int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.books[id]; !ok {
		return data.ErrRecordNotFound
	}
	delete(f.s.books, id)
	kept := f.s.likes[:0]
	for _, l := range f.s.likes {
		if l.BookID != id {
			kept = append(kept, l)
		}
	}
	f.s.likes = kept
	return nil
}

func (f fakeBooks) SetStatus(_ context.Context, id int64, status data.Status) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	b, ok := f.s.books[id]
	if !ok {
		return data.ErrRecordNotFound
	}
	b.Status = status
	return nil
}

func containsFold(s *string, sub string) bool {
	return s != nil && strings.Contains(strings.ToLower(*s), strings.ToLower(sub))
}

func (f fakeBooks) GetAll(_ context.Context, filters data.BookFilters) ([]*data.Book, data.Metadata, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*data.Book
	for _, b := range f.s.books {
		switch {
		case b.Status != data.StatusApproved:
		case filters.CategoryID != nil && (b.CategoryID == nil || *b.CategoryID != *filters.CategoryID):
		case filters.LanguageID != nil && (b.LanguageID == nil || *b.LanguageID != *filters.LanguageID):
		case filters.ListingType != "" && b.ListingType != filters.ListingType:
		case filters.MinPrice != nil && (b.Price == nil || *b.Price < *filters.MinPrice):
		case filters.MaxPrice != nil && (b.Price == nil || *b.Price > *filters.MaxPrice):
		case filters.Author != "" && !containsFold(&b.Author, filters.Author):
		case filters.Location != "" && !containsFold(b.Location, filters.Location):
		case filters.Search != "" && !containsFold(&b.Title, filters.Search) &&
			!containsFold(&b.Author, filters.Search) && !containsFold(b.Description, filters.Search):
		default:
			out = append(out, copyBook(b))
		}
	}
	sortNewestFirst(out)
	return paginate(out, filters.Filters)
}

func (f fakeBooks) GetForSeller(_ context.Context, sellerID int64, status data.Status, filters data.Filters) ([]*data.Book, data.Metadata, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*data.Book
	for _, b := range f.s.books {
		if b.SellerID == sellerID && (status == "" || b.Status == status) {
			out = append(out, copyBook(b))
		}
	}
	sortNewestFirst(out)
	return paginate(out, filters)
}

func (f fakeBooks) GetLikedBy(_ context.Context, userID int64, filters data.Filters) ([]*data.Book, data.Metadata, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*data.Book
	for i := len(f.s.likes) - 1; i >= 0; i-- {
		l := f.s.likes[i]
		if l.UserID == userID {
			out = append(out, copyBook(f.s.books[l.BookID]))
		}
	}
	return paginate(out, filters)
}

func sortNewestFirst(books []*data.Book) {
	sort.Slice(books, func(i, j int) bool {
		if !books[i].CreatedAt.Equal(books[j].CreatedAt) {
			return books[i].CreatedAt.After(books[j].CreatedAt)
		}
		return books[i].ID > books[j].ID
	})
}

func paginate(books []*data.Book, f data.Filters) ([]*data.Book, data.Metadata, error) {
	total := len(books)
	start := min((f.Page-1)*f.PageSize, total)
	end := min(start+f.PageSize, total)
	page := books[start:end]
	if page == nil {
		page = []*data.Book{}
	}
	return page, data.Metadata{
		Total:      total,
		Page:       f.Page,
		PageSize:   f.PageSize,
		TotalPages: (total + f.PageSize - 1) / f.PageSize,
	}, nil
}

type fakeLikes struct{ s *memStore }

func (f fakeLikes) Insert(_ context.Context, l *data.Like) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.books[l.BookID]; !ok {
		return data.ErrRecordNotFound
	}
	for _, existing := range f.s.likes {
		if existing.UserID == l.UserID && existing.BookID == l.BookID {
			return data.ErrDuplicateLike
		}
	}
	l.ID = f.s.id()
	l.CreatedAt = f.s.tick()
	c := *l
	f.s.likes = append(f.s.likes, &c)
	return nil
}

func (f fakeLikes) Delete(_ context.Context, userID, bookID int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for i, l := range f.s.likes {
		if l.UserID == userID && l.BookID == bookID {
			f.s.likes = append(f.s.likes[:i], f.s.likes[i+1:]...)
			return nil
		}
	}
	return data.ErrRecordNotFound
}

func (f fakeLikes) Exists(_ context.Context, userID, bookID int64) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, l := range f.s.likes {
		if l.UserID == userID && l.BookID == bookID {
			return true, nil
		}
	}
	return false, nil
}

type fakeCategories struct{ s *memStore }

func (f fakeCategories) Get(_ context.Context, id int64) (*data.Category, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	c, ok := f.s.categories[id]
	if !ok {
		return nil, data.ErrRecordNotFound
	}
	cc := *c
	return &cc, nil
}

func (f fakeCategories) GetAll(_ context.Context) ([]*data.Category, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := []*data.Category{}
	for _, c := range f.s.categories {
		cc := *c
		out = append(out, &cc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f fakeCategories) Upsert(_ context.Context, c *data.Category) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if c.ID == 0 {
		c.ID = f.s.id()
	}
	cc := *c
	f.s.categories[c.ID] = &cc
	return nil
}

type fakeLanguages struct{ s *memStore }

func (f fakeLanguages) Get(_ context.Context, id int64) (*data.Language, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	l, ok := f.s.languages[id]
	if !ok {
		return nil, data.ErrRecordNotFound
	}
	ll := *l
	return &ll, nil
}

func (f fakeLanguages) GetAll(_ context.Context) ([]*data.Language, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := []*data.Language{}
	for _, l := range f.s.languages {
		ll := *l
		out = append(out, &ll)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f fakeLanguages) Upsert(_ context.Context, l *data.Language) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if l.ID == 0 {
		l.ID = f.s.id()
	}
	ll := *l
	f.s.languages[l.ID] = &ll
	return nil
}

// fakeObjectStore records uploads instead of talking to MinIO.
type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeObjectStore) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = map[string][]byte{}
		f.types = map[string]string{}
	}
	f.objects[key] = b
	f.types[key] = contentType
	return "https://cdn.test/" + key, nil
}

// newTestApplication returns an application backed by a fresh memStore with
// the per-IP limiter disabled.
func newTestApplication(t *testing.T) (*applicationDependencies, *memStore) {
	t.Helper()

	cfg := config.Default()
	cfg.Limiter.Enabled = false
	cfg.Storage.MaxUploadBytes = 1024

	tokens, err := auth.NewTokenIssuer("test-secret", cfg.Auth.Issuer, time.Hour)
	require.NoError(t, err)

	store := newMemStore()
	return &applicationDependencies{
		config: cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		models: store.models(),
		tokens: tokens,
	}, store
}

type testResponse struct {
	status int
	header http.Header
	body   map[string]any
}

// do sends one request through the full middleware chain. body may be nil,
// a raw string, or any value to be JSON-encoded.
func do(t *testing.T, h http.Handler, method, path string, body any, token string) testResponse {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		js, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(js)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	res := testResponse{status: rr.Code, header: rr.Header()}
	if rr.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res.body), rr.Body.String())
	}
	return res
}

func seedUser(t *testing.T, app *applicationDependencies, email string) (*data.User, string) {
	t.Helper()
	user := &data.User{Email: email, PasswordHash: "unused"}
	require.NoError(t, app.models.Users.Insert(context.Background(), user))
	token, _, err := app.tokens.Issue(email)
	require.NoError(t, err)
	return user, token
}

func seedBook(t *testing.T, app *applicationDependencies, sellerID int64, title string, status data.Status) *data.Book {
	t.Helper()
	price := 10.0
	book := &data.Book{
		Title:       title,
		Author:      "Abdulla Qodiriy",
		Images:      []string{},
		SellerID:    sellerID,
		ListingType: data.ListingSell,
		Price:       &price,
		Status:      status,
	}
	require.NoError(t, app.models.Books.Insert(context.Background(), book))
	return book
}

func errorField(t *testing.T, res testResponse, field string) string {
	t.Helper()
	errs, ok := res.body["error"].(map[string]any)
	require.True(t, ok, "error is not a field map: %v", res.body["error"])
	msg, _ := errs[field].(string)
	return msg
}

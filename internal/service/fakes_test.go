package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/jhonny218/social-media-scheduler-sub001/internal/models"
	"github.com/jhonny218/social-media-scheduler-sub001/internal/platform"
	"github.com/jhonny218/social-media-scheduler-sub001/internal/repository"
)

// memPosts is an in-memory PostRepository with the same conditional
// transitions as the SQL one.
type memPosts struct {
	mu           sync.Mutex
	posts        map[string]*models.ScheduledPost
	publishedErr []error
	claims       int
}

func newMemPosts(posts ...*models.ScheduledPost) *memPosts {
	m := &memPosts{posts: map[string]*models.ScheduledPost{}}
	for _, p := range posts {
		m.posts[p.ID] = p
	}
	return m
}

func (m *memPosts) get(id string) *models.ScheduledPost {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := *m.posts[id]
	return &p
}

func (m *memPosts) Create(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := *post
	p.Media = nil
	m.posts[post.ID] = &p
	return nil
}

func (m *memPosts) Update(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.posts[post.ID]
	if !ok || (cur.Status != models.PostStatusScheduled && cur.Status != models.PostStatusFailed) {
		return false, nil
	}
	p := *post
	p.Status = cur.Status
	p.Media = nil
	m.posts[post.ID] = &p
	return true, nil
}

func (m *memPosts) GetByID(ctx context.Context, id string) (*models.ScheduledPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memPosts) ListByUserID(ctx context.Context, userID int64) ([]*models.ScheduledPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ScheduledPost
	for _, p := range m.posts {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memPosts) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ScheduledPost
	for _, p := range m.posts {
		if p.Status == models.PostStatusScheduled && !p.ScheduledTime.After(now) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledTime.Before(out[j].ScheduledTime) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memPosts) Claim(ctx context.Context, id string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok || p.Status != models.PostStatusScheduled {
		return false, nil
	}
	m.claims++
	p.Status = models.PostStatusPublishing
	p.PublishingAt = &now
	p.ErrorMessage = ""
	return true, nil
}

func (m *memPosts) MarkPublished(ctx context.Context, id, platformPostID, permalink string, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.publishedErr) > 0 {
		err := m.publishedErr[0]
		m.publishedErr = m.publishedErr[1:]
		if err != nil {
			return err
		}
	}
	p, ok := m.posts[id]
	if !ok || (p.Status != models.PostStatusPublishing && p.Status != models.PostStatusFailed) {
		return repository.ErrStatusChanged
	}
	p.Status = models.PostStatusPublished
	p.PlatformPostID = platformPostID
	p.Permalink = permalink
	p.ErrorMessage = ""
	p.PublishedAt = &now
	return nil
}

func (m *memPosts) MarkFailed(ctx context.Context, id, message string, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok || p.Status != models.PostStatusPublishing {
		return errors.New("post is not publishing")
	}
	p.Status = models.PostStatusFailed
	p.ErrorMessage = message
	p.FailedAt = &now
	return nil
}

func (m *memPosts) ResetToScheduled(ctx context.Context, id string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok || p.Status != models.PostStatusFailed {
		return false, nil
	}
	p.Status = models.PostStatusScheduled
	p.ErrorMessage = ""
	p.FailedAt = nil
	return true, nil
}

func (m *memPosts) ReclaimStale(ctx context.Context, olderThan time.Time, message string, now time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, p := range m.posts {
		if p.Status == models.PostStatusPublishing && p.PublishingAt != nil && p.PublishingAt.Before(olderThan) {
			p.Status = models.PostStatusFailed
			p.ErrorMessage = message
			p.FailedAt = &now
			ids = append(ids, p.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *memPosts) CheckByUserID(ctx context.Context, postID string, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[postID]
	return ok && p.UserID == userID, nil
}

func (m *memPosts) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.posts, id)
	return nil
}

type memMedia struct {
	mu    sync.Mutex
	items map[string][]models.MediaRef
}

func newMemMedia() *memMedia {
	return &memMedia{items: map[string][]models.MediaRef{}}
}

func (m *memMedia) put(postID string, media ...models.MediaRef) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[postID] = append(m.items[postID], media...)
}

func (m *memMedia) Create(ctx context.Context, tx *sql.Tx, media *models.MediaRef) error {
	m.put(media.PostID, *media)
	return nil
}

func (m *memMedia) ListByPostID(ctx context.Context, postID string) ([]models.MediaRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]models.MediaRef(nil), m.items[postID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (m *memMedia) RemoveByPostID(ctx context.Context, tx *sql.Tx, postID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, postID)
	return nil
}

type memAccounts struct {
	mu       sync.Mutex
	accounts map[int64]*models.SocialAccount
	nextID   int64
	createFn func(sa *models.SocialAccount) error
}

func newMemAccounts(accounts ...*models.SocialAccount) *memAccounts {
	m := &memAccounts{accounts: map[int64]*models.SocialAccount{}, nextID: 100}
	for _, a := range accounts {
		m.accounts[a.ID] = a
	}
	return m
}

func (m *memAccounts) Create(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error) {
	if m.createFn != nil {
		if err := m.createFn(sa); err != nil {
			return 0, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	cp := *sa
	cp.ID = m.nextID
	m.accounts[cp.ID] = &cp
	return cp.ID, nil
}

func (m *memAccounts) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (m *memAccounts) ListInfoByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.SocialAccount
	for _, a := range m.accounts {
		if a.UserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memAccounts) ListByTimeInterval(ctx context.Context, initialTime, finalTime time.Time) ([]*models.SocialAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.SocialAccount
	for _, a := range m.accounts {
		if !a.TokenExpiresAt.Before(initialTime) && !a.TokenExpiresAt.After(finalTime) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memAccounts) CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[accountID]
	return ok && a.UserID == userID, nil
}

func (m *memAccounts) SetToken(ctx context.Context, id int64, oldAccessToken string, sa *models.SocialAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok || a.AccessToken != oldAccessToken {
		return errors.New("token changed")
	}
	a.AccessToken = sa.AccessToken
	if sa.RefreshToken != "" {
		a.RefreshToken = sa.RefreshToken
	}
	a.TokenExpiresAt = sa.TokenExpiresAt
	a.AccountStatus = models.AccountStatusActive
	return nil
}

func (m *memAccounts) SetStatus(ctx context.Context, id int64, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[id]; ok {
		a.AccountStatus = status
	}
	return nil
}

func (m *memAccounts) Remove(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.accounts, id)
	return nil
}

// recorder collects adapter calls in order.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type fakeInstagram struct {
	*recorder
	err        error
	commentErr error
	carousel   []platform.CarouselItem
	cover      platform.ReelCoverSpec
	tokens     []string
	refresh    func(string) (string, time.Time, error)
}

func (f *fakeInstagram) result(id string) (*platform.PublishResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &platform.PublishResult{PlatformPostID: id, Permalink: "https://www.instagram.com/p/" + id + "/"}, nil
}

func (f *fakeInstagram) PublishImage(ctx context.Context, creds platform.Credentials, imageURL, caption string) (*platform.PublishResult, error) {
	f.add("instagram.image " + imageURL)
	f.tokens = append(f.tokens, creds.AccessToken)
	return f.result("ig1")
}

func (f *fakeInstagram) PublishCarousel(ctx context.Context, creds platform.Credentials, items []platform.CarouselItem, caption string) (*platform.PublishResult, error) {
	f.add("instagram.carousel")
	f.carousel = items
	return f.result("ig2")
}

func (f *fakeInstagram) PublishReel(ctx context.Context, creds platform.Credentials, videoURL, caption string, cover platform.ReelCoverSpec) (*platform.PublishResult, error) {
	f.add("instagram.reel " + videoURL)
	f.cover = cover
	return f.result("ig3")
}

func (f *fakeInstagram) PublishStory(ctx context.Context, creds platform.Credentials, mediaURL string, isVideo bool) (*platform.PublishResult, error) {
	f.add("instagram.story " + mediaURL)
	return f.result("ig4")
}

func (f *fakeInstagram) PostComment(ctx context.Context, creds platform.Credentials, mediaID, text string) error {
	f.add("instagram.comment " + mediaID + " " + text)
	return f.commentErr
}

func (f *fakeInstagram) Validate(ctx context.Context, creds platform.Credentials) error {
	f.add("instagram.validate")
	return f.err
}

func (f *fakeInstagram) RefreshToken(ctx context.Context, accessToken string) (string, time.Time, error) {
	f.add("instagram.refresh " + accessToken)
	return f.refresh(accessToken)
}

type fakeFacebook struct {
	*recorder
	err error
}

func (f *fakeFacebook) result(id string) (*platform.PublishResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &platform.PublishResult{PlatformPostID: id, Permalink: "https://www.facebook.com/" + id}, nil
}

func (f *fakeFacebook) PublishPhoto(ctx context.Context, creds platform.Credentials, imageURL, caption string) (*platform.PublishResult, error) {
	f.add("facebook.photo " + imageURL)
	return f.result("fb1")
}

func (f *fakeFacebook) PublishVideo(ctx context.Context, creds platform.Credentials, videoURL, caption string) (*platform.PublishResult, error) {
	f.add("facebook.video " + videoURL)
	return f.result("fb2")
}

func (f *fakeFacebook) PublishLink(ctx context.Context, creds platform.Credentials, message, link string) (*platform.PublishResult, error) {
	f.add("facebook.feed " + message)
	return f.result("fb3")
}

func (f *fakeFacebook) PublishAlbum(ctx context.Context, creds platform.Credentials, imageURLs []string, message string) (*platform.PublishResult, error) {
	f.add("facebook.album")
	return f.result("fb4")
}

func (f *fakeFacebook) PostComment(ctx context.Context, creds platform.Credentials, objectID, text string) error {
	f.add("facebook.comment")
	return nil
}

func (f *fakeFacebook) Validate(ctx context.Context, creds platform.Credentials) error {
	f.add("facebook.validate")
	return f.err
}

type fakePinterest struct {
	*recorder
	err      error
	pin      platform.PinSpec
	video    []byte
	coverURL string
	refresh  func(string) (*oauth2.Token, error)
}

func (f *fakePinterest) PublishImagePin(ctx context.Context, creds platform.Credentials, pin platform.PinSpec, imageURL string) (*platform.PublishResult, error) {
	f.add("pinterest.image " + imageURL)
	f.pin = pin
	if f.err != nil {
		return nil, f.err
	}
	return &platform.PublishResult{PlatformPostID: "pin1", Permalink: "https://www.pinterest.com/pin/pin1/"}, nil
}

func (f *fakePinterest) PublishVideoPin(ctx context.Context, creds platform.Credentials, pin platform.PinSpec, video []byte, contentType, coverURL string) (*platform.PublishResult, error) {
	f.add("pinterest.video " + contentType)
	f.pin = pin
	f.video = video
	f.coverURL = coverURL
	if f.err != nil {
		return nil, f.err
	}
	return &platform.PublishResult{PlatformPostID: "pin2", Permalink: "https://www.pinterest.com/pin/pin2/"}, nil
}

func (f *fakePinterest) PostComment(ctx context.Context, creds platform.Credentials, pinID, text string) error {
	return platform.ErrUnsupported
}

func (f *fakePinterest) Validate(ctx context.Context, creds platform.Credentials) error {
	f.add("pinterest.validate")
	return f.err
}

func (f *fakePinterest) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	f.add("pinterest.refresh " + refreshToken)
	return f.refresh(refreshToken)
}

// fakeSigner numbers each batch so URLs from different attempts differ.
type fakeSigner struct {
	calls [][]string
	err   error
}

func (s *fakeSigner) PresignBatch(ctx context.Context, paths []string, ttl time.Duration) (map[string]string, error) {
	s.calls = append(s.calls, append([]string(nil), paths...))
	if s.err != nil {
		return nil, s.err
	}
	urls := make(map[string]string, len(paths))
	for _, p := range paths {
		urls[p] = fmt.Sprintf("https://signed.example/%s?sig=%d", p, len(s.calls))
	}
	return urls, nil
}

type fakeSource struct {
	data        []byte
	contentType string
	fetched     []string
}

func (s *fakeSource) Fetch(ctx context.Context, m ResolvedMedia) ([]byte, string, error) {
	s.fetched = append(s.fetched, m.FetchURL)
	return s.data, s.contentType, nil
}

func noSleep(ctx context.Context, d time.Duration) error { return nil }

type memHistory struct {
	mu      sync.Mutex
	entries []*models.PostingHistory
}

func (m *memHistory) Create(_ context.Context, ph *models.PostingHistory) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := *ph
	row.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, &row)
	return row.ID, nil
}

func (m *memHistory) ListByPostID(_ context.Context, postID string) ([]*models.PostingHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.PostingHistory
	for _, e := range m.entries {
		if e.PostID == postID {
			out = append(out, e)
		}
	}
	return out, nil
}

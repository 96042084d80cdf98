package db

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/KAsare1/socialfeed-server/cmd/models"
)

type memState struct {
	seq      map[string]uint
	users    map[uint]models.User
	profiles map[uint]models.Profile
	posts    map[uint]models.Post
	images   map[uint]models.PostImage
	likes    map[uint]models.PostLike
	comments map[uint]models.PostComment
	shares   map[uint]models.PostShare
	follows  map[uint]models.UserFollow
}

func newMemState() *memState {
	return &memState{
		seq:      map[string]uint{},
		users:    map[uint]models.User{},
		profiles: map[uint]models.Profile{},
		posts:    map[uint]models.Post{},
		images:   map[uint]models.PostImage{},
		likes:    map[uint]models.PostLike{},
		comments: map[uint]models.PostComment{},
		shares:   map[uint]models.PostShare{},
		follows:  map[uint]models.UserFollow{},
	}
}

// Rows are stored without associations, so a shallow copy of every map is
// a full snapshot.
func (m *memState) clone() *memState {
	return &memState{
		seq:      maps.Clone(m.seq),
		users:    maps.Clone(m.users),
		profiles: maps.Clone(m.profiles),
		posts:    maps.Clone(m.posts),
		images:   maps.Clone(m.images),
		likes:    maps.Clone(m.likes),
		comments: maps.Clone(m.comments),
		shares:   maps.Clone(m.shares),
		follows:  maps.Clone(m.follows),
	}
}

func (m *memState) next(table string) uint {
	m.seq[table]++
	return m.seq[table]
}

// MemoryStore keeps everything in process. It backs STORAGE_DRIVER=memory
// and the service tests. Transactions serialise on a single lock and roll
// back by restoring a snapshot.
type MemoryStore struct {
	mu    *sync.Mutex
	state *memState
	inTx  bool
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{mu: &sync.Mutex{}, state: newMemState(), now: time.Now}
}

// WithClock replaces the timestamp source used for new rows.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemoryStore) Tx(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := s.state.clone()
	tx := &MemoryStore{mu: s.mu, state: s.state, inTx: true, now: s.now}
	if err := fn(tx); err != nil {
		*s.state = *snapshot
		return err
	}
	return nil
}

func (s *MemoryStore) stamp(t *time.Time) {
	if t.IsZero() {
		*t = s.now()
	}
}

// hydration

func (s *MemoryStore) userWithProfile(id uint) *models.User {
	user, ok := s.state.users[id]
	if !ok {
		return nil
	}
	for _, p := range s.state.profiles {
		if p.UserID == id {
			profile := p
			user.Profile = &profile
			break
		}
	}
	return &user
}

func (s *MemoryStore) postImages(postID uint) []models.PostImage {
	images := []models.PostImage{}
	for _, img := range s.state.images {
		if img.PostID == postID {
			images = append(images, img)
		}
	}
	sort.Slice(images, func(i, j int) bool { return images[i].Order < images[j].Order })
	return images
}

func (s *MemoryStore) hydratePost(p models.Post) models.Post {
	p.User = s.userWithProfile(p.UserID)
	p.Images = s.postImages(p.ID)
	return p
}

func pageOf[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && limit < end-offset {
		end = offset + limit
	}
	return items[offset:end]
}

func newerFirst(aTime, bTime time.Time, aID, bID uint) bool {
	if !aTime.Equal(bTime) {
		return aTime.After(bTime)
	}
	return aID > bID
}

func olderFirst(aTime, bTime time.Time, aID, bID uint) bool {
	if !aTime.Equal(bTime) {
		return aTime.Before(bTime)
	}
	return aID < bID
}

// cascades

func (s *MemoryStore) deleteCommentCascade(id uint) int64 {
	var removed int64
	for cid, c := range s.state.comments {
		if c.ParentCommentID != nil && *c.ParentCommentID == id {
			removed += s.deleteCommentCascade(cid)
		}
	}
	if _, ok := s.state.comments[id]; ok {
		delete(s.state.comments, id)
		removed++
	}
	return removed
}

func (s *MemoryStore) deletePostCascade(id uint) {
	for lid, l := range s.state.likes {
		if l.PostID == id {
			delete(s.state.likes, lid)
		}
	}
	for cid, c := range s.state.comments {
		if c.PostID == id {
			delete(s.state.comments, cid)
		}
	}
	for sid, sh := range s.state.shares {
		if sh.PostID == id {
			delete(s.state.shares, sid)
		}
	}
	for iid, img := range s.state.images {
		if img.PostID == id {
			delete(s.state.images, iid)
		}
	}
	delete(s.state.posts, id)
}

// Users

func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	defer s.lock()()
	email := strings.ToLower(user.Email)
	for _, u := range s.state.users {
		if strings.ToLower(u.Email) == email {
			return ErrDuplicate
		}
	}
	user.ID = s.state.next("users")
	s.stamp(&user.CreatedAt)
	user.UpdatedAt = user.CreatedAt

	row := *user
	row.Profile = nil
	s.state.users[user.ID] = row

	if user.Profile != nil {
		user.Profile.UserID = user.ID
		user.Profile.ID = s.state.next("profiles")
		s.stamp(&user.Profile.CreatedAt)
		user.Profile.UpdatedAt = user.Profile.CreatedAt
		s.state.profiles[user.Profile.ID] = *user.Profile
	}
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	defer s.lock()()
	user := s.userWithProfile(id)
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	defer s.lock()()
	for id, u := range s.state.users {
		if strings.EqualFold(u.Email, email) {
			return s.userWithProfile(id), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetUserByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	defer s.lock()()
	if token == "" {
		return nil, ErrNotFound
	}
	for _, u := range s.state.users {
		if u.RefreshToken == token {
			user := u
			return &user, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpdateUser(ctx context.Context, user *models.User) error {
	defer s.lock()()
	if _, ok := s.state.users[user.ID]; !ok {
		return ErrNotFound
	}
	user.UpdatedAt = s.now()
	row := *user
	row.Profile = nil
	s.state.users[user.ID] = row
	return nil
}

func (s *MemoryStore) SwapRefreshToken(ctx context.Context, userID uint, presented, next string, expiresAt time.Time) (int64, error) {
	defer s.lock()()
	u, ok := s.state.users[userID]
	if !ok || presented == "" || u.RefreshToken != presented {
		return 0, nil
	}
	u.RefreshToken = next
	u.RefreshTokenExpiredAt = expiresAt
	u.UpdatedAt = s.now()
	s.state.users[userID] = u
	return 1, nil
}

func (s *MemoryStore) DeleteUser(ctx context.Context, id uint) error {
	defer s.lock()()
	if _, ok := s.state.users[id]; !ok {
		return ErrNotFound
	}
	for pid, p := range s.state.profiles {
		if p.UserID == id {
			delete(s.state.profiles, pid)
		}
	}
	for pid, p := range s.state.posts {
		if p.UserID == id {
			s.deletePostCascade(pid)
		}
	}
	for lid, l := range s.state.likes {
		if l.UserID == id {
			delete(s.state.likes, lid)
		}
	}
	for sid, sh := range s.state.shares {
		if sh.UserID == id {
			delete(s.state.shares, sid)
		}
	}
	for cid, c := range s.state.comments {
		if c.UserID == id {
			s.deleteCommentCascade(cid)
		}
	}
	for fid, f := range s.state.follows {
		if f.FollowerID == id || f.FollowingID == id {
			delete(s.state.follows, fid)
		}
	}
	delete(s.state.users, id)
	return nil
}

func (s *MemoryStore) UserExists(ctx context.Context, id uint) (bool, error) {
	defer s.lock()()
	_, ok := s.state.users[id]
	return ok, nil
}

// Profiles

func (s *MemoryStore) GetProfile(ctx context.Context, userID uint) (*models.Profile, error) {
	defer s.lock()()
	for _, p := range s.state.profiles {
		if p.UserID == userID {
			profile := p
			return &profile, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) SaveProfile(ctx context.Context, profile *models.Profile) error {
	defer s.lock()()
	if _, ok := s.state.users[profile.UserID]; !ok {
		return ErrNotFound
	}
	if profile.ID == 0 {
		for _, p := range s.state.profiles {
			if p.UserID == profile.UserID {
				return ErrDuplicate
			}
		}
		profile.ID = s.state.next("profiles")
		s.stamp(&profile.CreatedAt)
	}
	profile.UpdatedAt = s.now()
	s.state.profiles[profile.ID] = *profile
	return nil
}

// Posts

func (s *MemoryStore) CreatePost(ctx context.Context, post *models.Post) error {
	defer s.lock()()
	if _, ok := s.state.users[post.UserID]; !ok {
		return ErrNotFound
	}
	seen := map[int]bool{}
	for _, img := range post.Images {
		if seen[img.Order] {
			return ErrDuplicate
		}
		seen[img.Order] = true
	}

	post.ID = s.state.next("posts")
	s.stamp(&post.CreatedAt)
	post.UpdatedAt = post.CreatedAt

	for i := range post.Images {
		img := &post.Images[i]
		img.ID = s.state.next("post_images")
		img.PostID = post.ID
		s.stamp(&img.CreatedAt)
		s.state.images[img.ID] = *img
	}

	row := *post
	row.User = nil
	row.Images = nil
	s.state.posts[post.ID] = row
	return nil
}

func (s *MemoryStore) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	defer s.lock()()
	p, ok := s.state.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	post := s.hydratePost(p)
	return &post, nil
}

func (s *MemoryStore) LockPost(ctx context.Context, id uint) (*models.Post, error) {
	defer s.lock()()
	p, ok := s.state.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) UpdatePostContent(ctx context.Context, id, userID uint, content string) (int64, error) {
	defer s.lock()()
	p, ok := s.state.posts[id]
	if !ok || p.UserID != userID {
		return 0, nil
	}
	p.Content = content
	p.UpdatedAt = s.now()
	s.state.posts[id] = p
	return 1, nil
}

func (s *MemoryStore) DeletePost(ctx context.Context, id, userID uint) (int64, error) {
	defer s.lock()()
	p, ok := s.state.posts[id]
	if !ok || p.UserID != userID {
		return 0, nil
	}
	s.deletePostCascade(id)
	return 1, nil
}

func (s *MemoryStore) ListPosts(ctx context.Context, q PostQuery) ([]models.Post, int64, error) {
	defer s.lock()()

	var followed map[uint]bool
	if q.FollowedBy != nil {
		followed = map[uint]bool{}
		for _, f := range s.state.follows {
			if f.FollowerID == *q.FollowedBy {
				followed[f.FollowingID] = true
			}
		}
	}

	var matched []models.Post
	for _, p := range s.state.posts {
		if q.AuthorID != nil && p.UserID != *q.AuthorID {
			continue
		}
		if followed != nil && !followed[p.UserID] {
			continue
		}
		matched = append(matched, p)
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if q.Order == OrderTrending && a.LikesCount != b.LikesCount {
			return a.LikesCount > b.LikesCount
		}
		return newerFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})

	page := pageOf(matched, q.Offset, q.Limit)
	posts := make([]models.Post, 0, len(page))
	for _, p := range page {
		posts = append(posts, s.hydratePost(p))
	}
	return posts, int64(len(matched)), nil
}

func (s *MemoryStore) AdjustPostCounter(ctx context.Context, postID uint, counter Counter, delta int) error {
	defer s.lock()()
	p, ok := s.state.posts[postID]
	if !ok {
		return nil
	}

	var field *int
	switch counter {
	case LikesCount:
		field = &p.LikesCount
	case CommentsCount:
		field = &p.CommentsCount
	case SharesCount:
		field = &p.SharesCount
	default:
		return ErrNotFound
	}
	*field += delta
	if *field < 0 {
		*field = 0
	}
	s.state.posts[postID] = p
	return nil
}

func (s *MemoryStore) RecountPostCounters(ctx context.Context, postIDs []uint) error {
	defer s.lock()()
	for _, id := range postIDs {
		p, ok := s.state.posts[id]
		if !ok {
			continue
		}
		p.LikesCount, p.CommentsCount, p.SharesCount = 0, 0, 0
		for _, l := range s.state.likes {
			if l.PostID == id {
				p.LikesCount++
			}
		}
		for _, c := range s.state.comments {
			if c.PostID == id {
				p.CommentsCount++
			}
		}
		for _, sh := range s.state.shares {
			if sh.PostID == id {
				p.SharesCount++
			}
		}
		s.state.posts[id] = p
	}
	return nil
}

func (s *MemoryStore) PostsTouchedBy(ctx context.Context, userID uint) ([]uint, error) {
	defer s.lock()()
	set := map[uint]bool{}
	for _, l := range s.state.likes {
		if l.UserID == userID {
			set[l.PostID] = true
		}
	}
	for _, sh := range s.state.shares {
		if sh.UserID == userID {
			set[sh.PostID] = true
		}
	}
	for _, c := range s.state.comments {
		if c.UserID == userID {
			set[c.PostID] = true
		}
	}
	ids := make([]uint, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Likes

func (s *MemoryStore) FindLike(ctx context.Context, postID, userID uint) (*models.PostLike, error) {
	defer s.lock()()
	for _, l := range s.state.likes {
		if l.PostID == postID && l.UserID == userID {
			like := l
			return &like, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CreateLike(ctx context.Context, like *models.PostLike) error {
	defer s.lock()()
	if _, ok := s.state.posts[like.PostID]; !ok {
		return ErrNotFound
	}
	for _, l := range s.state.likes {
		if l.PostID == like.PostID && l.UserID == like.UserID {
			return ErrDuplicate
		}
	}
	like.ID = s.state.next("post_likes")
	s.stamp(&like.CreatedAt)
	row := *like
	row.Post, row.User = nil, nil
	s.state.likes[like.ID] = row
	return nil
}

func (s *MemoryStore) DeleteLike(ctx context.Context, postID, userID uint) (int64, error) {
	defer s.lock()()
	for id, l := range s.state.likes {
		if l.PostID == postID && l.UserID == userID {
			delete(s.state.likes, id)
			return 1, nil
		}
	}
	return 0, nil
}

func (s *MemoryStore) ListLikes(ctx context.Context, postID uint, offset, limit int) ([]models.PostLike, int64, error) {
	defer s.lock()()
	var matched []models.PostLike
	for _, l := range s.state.likes {
		if l.PostID == postID {
			matched = append(matched, l)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return newerFirst(matched[i].CreatedAt, matched[j].CreatedAt, matched[i].ID, matched[j].ID)
	})
	page := pageOf(matched, offset, limit)
	likes := make([]models.PostLike, 0, len(page))
	for _, l := range page {
		l.User = s.userWithProfile(l.UserID)
		likes = append(likes, l)
	}
	return likes, int64(len(matched)), nil
}

func (s *MemoryStore) LikedPostIDs(ctx context.Context, userID uint, postIDs []uint) (map[uint]bool, error) {
	defer s.lock()()
	want := idSet(postIDs)
	flags := make(map[uint]bool, len(postIDs))
	for _, l := range s.state.likes {
		if l.UserID == userID && want[l.PostID] {
			flags[l.PostID] = true
		}
	}
	return flags, nil
}

func idSet(ids []uint) map[uint]bool {
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// Shares

func (s *MemoryStore) FindShare(ctx context.Context, postID, userID uint) (*models.PostShare, error) {
	defer s.lock()()
	for _, sh := range s.state.shares {
		if sh.PostID == postID && sh.UserID == userID {
			share := sh
			return &share, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CreateShare(ctx context.Context, share *models.PostShare) error {
	defer s.lock()()
	if _, ok := s.state.posts[share.PostID]; !ok {
		return ErrNotFound
	}
	for _, sh := range s.state.shares {
		if sh.PostID == share.PostID && sh.UserID == share.UserID {
			return ErrDuplicate
		}
	}
	share.ID = s.state.next("post_shares")
	s.stamp(&share.CreatedAt)
	row := *share
	row.Post, row.User = nil, nil
	s.state.shares[share.ID] = row
	return nil
}

func (s *MemoryStore) DeleteShare(ctx context.Context, postID, userID uint) (int64, error) {
	defer s.lock()()
	for id, sh := range s.state.shares {
		if sh.PostID == postID && sh.UserID == userID {
			delete(s.state.shares, id)
			return 1, nil
		}
	}
	return 0, nil
}

func (s *MemoryStore) sortedShares(match func(models.PostShare) bool) []models.PostShare {
	var matched []models.PostShare
	for _, sh := range s.state.shares {
		if match(sh) {
			matched = append(matched, sh)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return newerFirst(matched[i].CreatedAt, matched[j].CreatedAt, matched[i].ID, matched[j].ID)
	})
	return matched
}

func (s *MemoryStore) ListSharesByPost(ctx context.Context, postID uint, offset, limit int) ([]models.PostShare, int64, error) {
	defer s.lock()()
	matched := s.sortedShares(func(sh models.PostShare) bool { return sh.PostID == postID })
	page := pageOf(matched, offset, limit)
	shares := make([]models.PostShare, 0, len(page))
	for _, sh := range page {
		sh.User = s.userWithProfile(sh.UserID)
		shares = append(shares, sh)
	}
	return shares, int64(len(matched)), nil
}

func (s *MemoryStore) ListSharesByUser(ctx context.Context, userID uint) ([]models.PostShare, error) {
	defer s.lock()()
	matched := s.sortedShares(func(sh models.PostShare) bool { return sh.UserID == userID })
	shares := make([]models.PostShare, 0, len(matched))
	for _, sh := range matched {
		if p, ok := s.state.posts[sh.PostID]; ok {
			post := s.hydratePost(p)
			sh.Post = &post
		}
		shares = append(shares, sh)
	}
	return shares, nil
}

func (s *MemoryStore) SharedPostIDs(ctx context.Context, userID uint, postIDs []uint) (map[uint]bool, error) {
	defer s.lock()()
	want := idSet(postIDs)
	flags := make(map[uint]bool, len(postIDs))
	for _, sh := range s.state.shares {
		if sh.UserID == userID && want[sh.PostID] {
			flags[sh.PostID] = true
		}
	}
	return flags, nil
}

// Comments

func (s *MemoryStore) CreateComment(ctx context.Context, comment *models.PostComment) error {
	defer s.lock()()
	if _, ok := s.state.posts[comment.PostID]; !ok {
		return ErrNotFound
	}
	if comment.ParentCommentID != nil {
		if _, ok := s.state.comments[*comment.ParentCommentID]; !ok {
			return ErrNotFound
		}
	}
	comment.ID = s.state.next("post_comments")
	s.stamp(&comment.CreatedAt)
	comment.UpdatedAt = comment.CreatedAt
	row := *comment
	row.Post, row.User, row.Replies = nil, nil, nil
	s.state.comments[comment.ID] = row
	return nil
}

func (s *MemoryStore) GetComment(ctx context.Context, id uint) (*models.PostComment, error) {
	defer s.lock()()
	c, ok := s.state.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	c.User = s.userWithProfile(c.UserID)
	return &c, nil
}

func (s *MemoryStore) UpdateCommentContent(ctx context.Context, id, userID uint, content string) (int64, error) {
	defer s.lock()()
	c, ok := s.state.comments[id]
	if !ok || c.UserID != userID {
		return 0, nil
	}
	c.Content = content
	c.UpdatedAt = s.now()
	s.state.comments[id] = c
	return 1, nil
}

func (s *MemoryStore) DeleteCommentThread(ctx context.Context, id uint) (int64, error) {
	defer s.lock()()
	var removed int64
	for cid, c := range s.state.comments {
		if c.ParentCommentID != nil && *c.ParentCommentID == id {
			removed += s.deleteCommentCascade(cid)
		}
	}
	if _, ok := s.state.comments[id]; ok {
		delete(s.state.comments, id)
		removed++
	}
	return removed, nil
}

func (s *MemoryStore) ListComments(ctx context.Context, postID uint, offset, limit int) ([]models.PostComment, int64, error) {
	defer s.lock()()
	var top []models.PostComment
	replies := map[uint][]models.PostComment{}
	for _, c := range s.state.comments {
		if c.PostID != postID {
			continue
		}
		if c.ParentCommentID == nil {
			top = append(top, c)
		} else {
			c.User = s.userWithProfile(c.UserID)
			replies[*c.ParentCommentID] = append(replies[*c.ParentCommentID], c)
		}
	}
	sort.Slice(top, func(i, j int) bool {
		return olderFirst(top[i].CreatedAt, top[j].CreatedAt, top[i].ID, top[j].ID)
	})

	page := pageOf(top, offset, limit)
	comments := make([]models.PostComment, 0, len(page))
	for _, c := range page {
		c.User = s.userWithProfile(c.UserID)
		rs := replies[c.ID]
		sort.Slice(rs, func(i, j int) bool {
			return olderFirst(rs[i].CreatedAt, rs[j].CreatedAt, rs[i].ID, rs[j].ID)
		})
		c.Replies = rs
		comments = append(comments, c)
	}
	return comments, int64(len(top)), nil
}

// Follows

func (s *MemoryStore) CreateFollow(ctx context.Context, follow *models.UserFollow) error {
	defer s.lock()()
	if follow.FollowerID == follow.FollowingID {
		return ErrDuplicate
	}
	if _, ok := s.state.users[follow.FollowingID]; !ok {
		return ErrNotFound
	}
	for _, f := range s.state.follows {
		if f.FollowerID == follow.FollowerID && f.FollowingID == follow.FollowingID {
			return ErrDuplicate
		}
	}
	follow.ID = s.state.next("user_follows")
	s.stamp(&follow.CreatedAt)
	row := *follow
	row.Follower, row.Following = nil, nil
	s.state.follows[follow.ID] = row
	return nil
}

func (s *MemoryStore) DeleteFollow(ctx context.Context, followerID, followingID uint) (int64, error) {
	defer s.lock()()
	for id, f := range s.state.follows {
		if f.FollowerID == followerID && f.FollowingID == followingID {
			delete(s.state.follows, id)
			return 1, nil
		}
	}
	return 0, nil
}

func (s *MemoryStore) IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error) {
	defer s.lock()()
	for _, f := range s.state.follows {
		if f.FollowerID == followerID && f.FollowingID == followingID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) listFollowEdge(userID uint, followers bool, offset, limit int) ([]models.User, int64) {
	var edges []models.UserFollow
	for _, f := range s.state.follows {
		if (followers && f.FollowingID == userID) || (!followers && f.FollowerID == userID) {
			edges = append(edges, f)
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		return newerFirst(edges[i].CreatedAt, edges[j].CreatedAt, edges[i].ID, edges[j].ID)
	})

	page := pageOf(edges, offset, limit)
	users := make([]models.User, 0, len(page))
	for _, e := range page {
		other := e.FollowingID
		if followers {
			other = e.FollowerID
		}
		if u := s.userWithProfile(other); u != nil {
			users = append(users, *u)
		}
	}
	return users, int64(len(edges))
}

func (s *MemoryStore) ListFollowers(ctx context.Context, userID uint, offset, limit int) ([]models.User, int64, error) {
	defer s.lock()()
	users, total := s.listFollowEdge(userID, true, offset, limit)
	return users, total, nil
}

func (s *MemoryStore) ListFollowing(ctx context.Context, userID uint, offset, limit int) ([]models.User, int64, error) {
	defer s.lock()()
	users, total := s.listFollowEdge(userID, false, offset, limit)
	return users, total, nil
}

func (s *MemoryStore) FollowCounts(ctx context.Context, userID uint) (models.FollowStats, error) {
	defer s.lock()()
	var stats models.FollowStats
	for _, f := range s.state.follows {
		if f.FollowingID == userID {
			stats.Followers++
		}
		if f.FollowerID == userID {
			stats.Following++
		}
	}
	return stats, nil
}

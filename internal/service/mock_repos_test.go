package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"sort-voting/config"
	"sort-voting/internal/model"
	"sort-voting/internal/repository"
	pkgerrors "sort-voting/pkg/errors"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users  map[int64]*model.User
	nextID int64
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[int64]*model.User), nextID: 1}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.ID == 0 {
		user.ID = m.nextID
		m.nextID++
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ListByIDs(_ context.Context, ids []int64) ([]model.User, error) {
	var result []model.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			result = append(result, *u)
		}
	}
	return result, nil
}

// ── Mock EnrolmentRepository ──

type enrolmentKey struct{ course, user int64 }

type mockEnrolmentRepo struct {
	enrolments map[enrolmentKey]*model.Enrolment
}

func newMockEnrolmentRepo() *mockEnrolmentRepo {
	return &mockEnrolmentRepo{enrolments: make(map[enrolmentKey]*model.Enrolment)}
}

func (m *mockEnrolmentRepo) Upsert(_ context.Context, e *model.Enrolment) error {
	m.enrolments[enrolmentKey{e.CourseID, e.UserID}] = e
	return nil
}

func (m *mockEnrolmentRepo) Get(_ context.Context, courseID, userID int64) (*model.Enrolment, error) {
	if e, ok := m.enrolments[enrolmentKey{courseID, userID}]; ok {
		return e, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEnrolmentRepo) ListByCourse(_ context.Context, courseID int64) ([]model.Enrolment, error) {
	var result []model.Enrolment
	for k, e := range m.enrolments {
		if k.course == courseID {
			result = append(result, *e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}

func (m *mockEnrolmentRepo) Delete(_ context.Context, courseID, userID int64) error {
	k := enrolmentKey{courseID, userID}
	if _, ok := m.enrolments[k]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.enrolments, k)
	return nil
}

// ── Mock ActivityRepository ──

type mockActivityRepo struct {
	activities   map[int64]*model.Activity
	votes        *mockVoteRepo
	nextID       int64
	nextOptionID int64
}

func newMockActivityRepo(votes *mockVoteRepo) *mockActivityRepo {
	return &mockActivityRepo{
		activities:   make(map[int64]*model.Activity),
		votes:        votes,
		nextID:       1,
		nextOptionID: 1,
	}
}

func (m *mockActivityRepo) Create(_ context.Context, a *model.Activity) error {
	a.ID = m.nextID
	m.nextID++
	if a.Version == 0 {
		a.Version = 1
	}
	for i := range a.Options {
		a.Options[i].ID = m.nextOptionID
		a.Options[i].ActivityID = a.ID
		m.nextOptionID++
	}
	stored := *a
	stored.Options = append([]model.Option(nil), a.Options...)
	m.activities[a.ID] = &stored
	return nil
}

func (m *mockActivityRepo) GetByID(_ context.Context, id int64) (*model.Activity, error) {
	a, ok := m.activities[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	cp.Options = append([]model.Option(nil), a.Options...)
	sort.Slice(cp.Options, func(i, j int) bool { return cp.Options[i].ID < cp.Options[j].ID })
	return &cp, nil
}

func (m *mockActivityRepo) ListByCourse(ctx context.Context, courseID int64, offset, limit int) ([]model.Activity, int64, error) {
	var all []model.Activity
	for id, a := range m.activities {
		if a.CourseID == courseID {
			cp, _ := m.GetByID(ctx, id)
			all = append(all, *cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := int64(len(all))
	if offset > len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockActivityRepo) Update(_ context.Context, a *model.Activity, s repository.OptionSync) error {
	stored, ok := m.activities[a.ID]
	if !ok || stored.Version != a.Version {
		return pkgerrors.ErrOptimisticLock
	}

	deleted := make(map[int64]bool, len(s.Delete))
	for _, id := range s.Delete {
		deleted[id] = true
	}
	renamed := make(map[int64]string, len(s.Update))
	for _, o := range s.Update {
		renamed[o.ID] = o.Text
	}

	var options []model.Option
	for _, o := range stored.Options {
		if deleted[o.ID] {
			continue
		}
		if text, ok := renamed[o.ID]; ok {
			o.Text = text
		}
		options = append(options, o)
	}
	for _, o := range s.Create {
		options = append(options, model.Option{ID: m.nextOptionID, ActivityID: a.ID, Text: o.Text})
		m.nextOptionID++
	}
	if m.votes != nil && len(s.Delete) > 0 {
		m.votes.deleteOptions(a.ID, deleted)
	}

	a.Version++
	a.UpdatedAt = time.Now()
	updated := *a
	updated.Options = options
	m.activities[a.ID] = &updated
	return nil
}

func (m *mockActivityRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.activities[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.activities, id)
	if m.votes != nil {
		m.votes.mu.Lock()
		delete(m.votes.votes, id)
		m.votes.mu.Unlock()
	}
	return nil
}

// ── Mock VoteRepository ──

type mockVoteRepo struct {
	mu           sync.Mutex
	votes        map[int64]map[int64][]model.Vote // activity → user → votes
	activities   *mockActivityRepo
	replaceCalls int
	replaceErr   error
	nextID       int64
}

func newMockVoteRepo() *mockVoteRepo {
	return &mockVoteRepo{votes: make(map[int64]map[int64][]model.Vote), nextID: 1}
}

func (m *mockVoteRepo) ReplaceUserVotes(ctx context.Context, activityID, userID int64, votes []model.Vote) error {
	return m.replace(ctx, activityID, userID, votes, false)
}

func (m *mockVoteRepo) ReplaceOpenUserVotes(ctx context.Context, activityID, userID int64, votes []model.Vote) error {
	return m.replace(ctx, activityID, userID, votes, true)
}

func (m *mockVoteRepo) replace(ctx context.Context, activityID, userID int64, votes []model.Vote, rejectComplete bool) error {
	var options []model.Option
	if rejectComplete && m.activities != nil {
		if a, err := m.activities.GetByID(ctx, activityID); err == nil {
			options = a.Options
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaceCalls++
	if m.replaceErr != nil {
		return m.replaceErr
	}
	if rejectComplete && isComplete(m.votes[activityID][userID], options) {
		return pkgerrors.ErrVoteLocked
	}

	// 与唯一索引 uq_sortvoting_answers_position 一致
	seen := make(map[int]bool, len(votes))
	for _, v := range votes {
		if seen[v.Position] {
			return pkgerrors.ErrDuplicatePosition
		}
		seen[v.Position] = true
	}

	stored := make([]model.Vote, len(votes))
	for i, v := range votes {
		v.ID = m.nextID
		m.nextID++
		stored[i] = v
	}
	if m.votes[activityID] == nil {
		m.votes[activityID] = make(map[int64][]model.Vote)
	}
	m.votes[activityID][userID] = stored
	return nil
}

func (m *mockVoteRepo) ListByActivityAndUser(_ context.Context, activityID, userID int64) ([]model.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := append([]model.Vote(nil), m.votes[activityID][userID]...)
	sort.Slice(result, func(i, j int) bool { return result[i].Position < result[j].Position })
	return result, nil
}

func (m *mockVoteRepo) ListByActivity(_ context.Context, activityID int64) ([]model.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Vote
	for _, vs := range m.votes[activityID] {
		result = append(result, vs...)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].UserID != result[j].UserID {
			return result[i].UserID < result[j].UserID
		}
		return result[i].Position < result[j].Position
	})
	return result, nil
}

func (m *mockVoteRepo) CountVoters(_ context.Context, activityID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, vs := range m.votes[activityID] {
		if len(vs) > 0 {
			n++
		}
	}
	return n, nil
}

func (m *mockVoteRepo) DeleteByActivityAndUsers(_ context.Context, activityID int64, userIDs []int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, uid := range userIDs {
		n += int64(len(m.votes[activityID][uid]))
		delete(m.votes[activityID], uid)
	}
	return n, nil
}

// AveragePositions 按选项 id 顺序返回，排序交由调用方
func (m *mockVoteRepo) AveragePositions(ctx context.Context, activityID int64) ([]repository.OptionAverage, error) {
	texts := make(map[int64]string)
	if m.activities != nil {
		if a, err := m.activities.GetByID(ctx, activityID); err == nil {
			for _, o := range a.Options {
				texts[o.ID] = o.Text
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	sums := make(map[int64]int64)
	counts := make(map[int64]int64)
	for _, vs := range m.votes[activityID] {
		for _, v := range vs {
			if _, ok := texts[v.OptionID]; !ok {
				continue
			}
			sums[v.OptionID] += int64(v.Position)
			counts[v.OptionID]++
		}
	}

	var ids []int64
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	result := make([]repository.OptionAverage, len(ids))
	for i, id := range ids {
		avg := decimal.NewFromInt(sums[id]).Div(decimal.NewFromInt(counts[id])).Round(2)
		result[i] = repository.OptionAverage{OptionID: id, Text: texts[id], Average: avg, VoteCount: counts[id]}
	}
	return result, nil
}

func (m *mockVoteRepo) deleteOptions(activityID int64, options map[int64]bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for uid, vs := range m.votes[activityID] {
		kept := vs[:0]
		for _, v := range vs {
			if !options[v.OptionID] {
				kept = append(kept, v)
			}
		}
		m.votes[activityID][uid] = kept
	}
}

// hookedVoteRepo 在读操作返回前执行一次性回调，模拟并发写入穿插在读与后续步骤之间
type hookedVoteRepo struct {
	*mockVoteRepo
	afterAverage func()
	afterList    func()
}

func (h *hookedVoteRepo) AveragePositions(ctx context.Context, activityID int64) ([]repository.OptionAverage, error) {
	rows, err := h.mockVoteRepo.AveragePositions(ctx, activityID)
	if f := h.afterAverage; f != nil {
		h.afterAverage = nil
		f()
	}
	return rows, err
}

func (h *hookedVoteRepo) ListByActivityAndUser(ctx context.Context, activityID, userID int64) ([]model.Vote, error) {
	votes, err := h.mockVoteRepo.ListByActivityAndUser(ctx, activityID, userID)
	if f := h.afterList; f != nil {
		h.afterList = nil
		f()
	}
	return votes, err
}

// ── Mock 缓存 / 黑名单 ──

type mockCache struct {
	store    map[string][]byte
	counters map[string]int64
	deletes  []string
}

func newMockCache() *mockCache {
	return &mockCache{store: make(map[string][]byte), counters: make(map[string]int64)}
}

func (m *mockCache) Incr(_ context.Context, key string) (int64, error) {
	m.counters[key]++
	return m.counters[key], nil
}

func (m *mockCache) GetInt64(_ context.Context, key string) (int64, error) {
	return m.counters[key], nil
}

func (m *mockCache) GetJSON(_ context.Context, key string, dest interface{}) (bool, error) {
	data, ok := m.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (m *mockCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.store[key] = data
	return nil
}

func (m *mockCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.store, k)
		m.deletes = append(m.deletes, k)
	}
	return nil
}

type mockBlacklist struct {
	tokens map[string]time.Duration
}

func newMockBlacklist() *mockBlacklist {
	return &mockBlacklist{tokens: make(map[string]time.Duration)}
}

func (m *mockBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	m.tokens[jti] = ttl
	return nil
}

func (m *mockBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	_, ok := m.tokens[jti]
	return ok, nil
}

// ── 测试环境 ──

const (
	testCourseID  int64 = 100
	testTeacherID int64 = 1
	testStudentA  int64 = 2
	testStudentB  int64 = 3
	testOutsider  int64 = 4
	testAdminID   int64 = 9
)

var (
	teacher  = Caller{UserID: testTeacherID, Role: model.RoleUser}
	studentA = Caller{UserID: testStudentA, Role: model.RoleUser}
	studentB = Caller{UserID: testStudentB, Role: model.RoleUser}
	outsider = Caller{UserID: testOutsider, Role: model.RoleUser}
	admin    = Caller{UserID: testAdminID, Role: model.RoleAdmin}
)

type testEnv struct {
	repo       *repository.Repository
	users      *mockUserRepo
	enrolments *mockEnrolmentRepo
	activities *mockActivityRepo
	votes      *mockVoteRepo
	cache      *mockCache
	perm       PermissionService
	results    *resultCacher
	cfg        *config.Config
	logger     *zap.Logger
}

func newTestEnv() *testEnv {
	votes := newMockVoteRepo()
	activities := newMockActivityRepo(votes)
	votes.activities = activities
	users := newMockUserRepo()
	enrolments := newMockEnrolmentRepo()

	for _, u := range []*model.User{
		{ID: testTeacherID, Username: "teacher", Name: "教师", Role: model.RoleUser},
		{ID: testStudentA, Username: "alice", Name: "Alice", Role: model.RoleUser},
		{ID: testStudentB, Username: "bob", Name: "Bob", Role: model.RoleUser},
		{ID: testOutsider, Username: "eve", Name: "Eve", Role: model.RoleUser},
		{ID: testAdminID, Username: "root", Name: "管理员", Role: model.RoleAdmin},
	} {
		users.users[u.ID] = u
	}
	users.nextID = 10

	_ = enrolments.Upsert(context.Background(), &model.Enrolment{CourseID: testCourseID, UserID: testTeacherID, Role: model.CourseRoleTeacher})
	_ = enrolments.Upsert(context.Background(), &model.Enrolment{CourseID: testCourseID, UserID: testStudentA, Role: model.CourseRoleStudent})
	_ = enrolments.Upsert(context.Background(), &model.Enrolment{CourseID: testCourseID, UserID: testStudentB, Role: model.CourseRoleStudent})

	repo := &repository.Repository{
		User:      users,
		Enrolment: enrolments,
		Activity:  activities,
		Vote:      votes,
	}
	logger := zap.NewNop()
	cache := newMockCache()
	cfg := &config.Config{
		Vote: config.VoteConfig{ResultsCacheTTL: time.Minute, MaxOptions: 10},
	}

	return &testEnv{
		repo:       repo,
		users:      users,
		enrolments: enrolments,
		activities: activities,
		votes:      votes,
		cache:      cache,
		perm:       NewPermissionService(repo, logger),
		results:    newResultCacher(cache, cfg.Vote.ResultsCacheTTL, logger),
		cfg:        cfg,
		logger:     logger,
	}
}

// currentResultsKey 活动当前世代下的结果缓存键
func (e *testEnv) currentResultsKey(activityID int64) string {
	return resultsCacheKey(activityID, e.cache.counters[resultsGenKey(activityID)])
}

// seedActivity 在测试课程中创建活动，返回活动及其选项 id（按顺序）
func (e *testEnv) seedActivity(allowUpdate, showResults bool, options ...string) (*model.Activity, []int64) {
	a := &model.Activity{
		CourseID:    testCourseID,
		Name:        "排序投票",
		AllowUpdate: allowUpdate,
		ShowResults: showResults,
	}
	for _, text := range options {
		a.Options = append(a.Options, model.Option{Text: text})
	}
	_ = e.activities.Create(context.Background(), a)
	ids := make([]int64, len(a.Options))
	for i, o := range a.Options {
		ids[i] = o.ID
	}
	return a, ids
}

// repositorySync 仅新增选项的变更集
func repositorySync(texts ...string) repository.OptionSync {
	var s repository.OptionSync
	for _, text := range texts {
		s.Create = append(s.Create, model.Option{Text: text})
	}
	return s
}

func enrolStudent(userID int64) *model.Enrolment {
	return &model.Enrolment{CourseID: testCourseID, UserID: userID, Role: model.CourseRoleStudent}
}

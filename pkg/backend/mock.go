package backend

import (
	"context"
	"encoding/json"
	"sync"
)

type MockCall struct {
	Operation   string
	Token       string
	CommunityID string
}

// MockClient 可配置的后端 mock，实现 Client 接口。未配置的社区返回 ErrNotFound
type MockClient struct {
	mu    sync.Mutex
	Calls []MockCall

	Communities map[string]Community
	Mine        []Community
	Members     map[string][]Member
	Posts       map[string][]Post
	Shame       map[string]json.RawMessage

	// Errors 按 "operation" 或 "operation:communityID" 注入错误
	Errors map[string]error
}

func NewMockClient() *MockClient {
	return &MockClient{
		Communities: make(map[string]Community),
		Members:     make(map[string][]Member),
		Posts:       make(map[string][]Post),
		Shame:       make(map[string]json.RawMessage),
		Errors:      make(map[string]error),
	}
}

// AddCommunity 同时登记到全部社区与“我的社区”
func (m *MockClient) AddCommunity(c Community, mine bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Communities[c.ID] = c
	if mine {
		m.Mine = append(m.Mine, c)
	}
}

func (m *MockClient) SetError(operation, communityID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := operation
	if communityID != "" {
		key += ":" + communityID
	}
	m.Errors[key] = err
}

func (m *MockClient) CallCount(operation string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, call := range m.Calls {
		if call.Operation == operation {
			n++
		}
	}
	return n
}

func (m *MockClient) record(operation, token, communityID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockCall{Operation: operation, Token: token, CommunityID: communityID})
	if err, ok := m.Errors[operation+":"+communityID]; ok {
		return err
	}
	return m.Errors[operation]
}

func (m *MockClient) GetCommunity(ctx context.Context, token, communityID string) (*Community, error) {
	if err := m.record("get_community", token, communityID); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Communities[communityID]
	if !ok {
		return nil, &StatusError{Operation: "get_community", Code: 404}
	}
	return &c, nil
}

func (m *MockClient) ListCommunities(ctx context.Context, token string) ([]Community, error) {
	if err := m.record("list_communities", token, ""); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]Community, 0, len(m.Communities))
	for _, c := range m.Communities {
		all = append(all, c)
	}
	return all, nil
}

func (m *MockClient) MyCommunities(ctx context.Context, token string) ([]Community, error) {
	if err := m.record("my_communities", token, ""); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Community(nil), m.Mine...), nil
}

func (m *MockClient) ListMembers(ctx context.Context, token, communityID string) ([]Member, error) {
	if err := m.record("get_members", token, communityID); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Member(nil), m.Members[communityID]...), nil
}

func (m *MockClient) ListPosts(ctx context.Context, token, communityID string) ([]Post, error) {
	if err := m.record("list_posts", token, communityID); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Post(nil), m.Posts[communityID]...), nil
}

func (m *MockClient) ShameBoard(ctx context.Context, token, communityID string) (json.RawMessage, error) {
	if err := m.record("shame_board", token, communityID); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if raw, ok := m.Shame[communityID]; ok {
		return raw, nil
	}
	return json.RawMessage(`[]`), nil
}

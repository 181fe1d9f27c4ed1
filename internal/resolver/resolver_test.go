package resolver

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rackwise-topology/internal/domain"
)

// fakeLookup 内存连接查询桩
type fakeLookup struct {
	byID   map[string]*domain.ConnectionDetail
	byCode map[string]*domain.ConnectionDetail
	err    error
}

func (f *fakeLookup) GetConnectionByID(ctx context.Context, id string) (*domain.ConnectionDetail, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byID[id], nil
}

func (f *fakeLookup) GetConnectionByCode(ctx context.Context, code string) (*domain.ConnectionDetail, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byCode[code], nil
}

func testDetail(id, code string) *domain.ConnectionDetail {
	return &domain.ConnectionDetail{
		Connection: domain.Connection{
			ConnectionID: id,
			Code:         code,
			PortAID:      "p-a",
			PortBID:      "p-b",
			Status:       "active",
		},
		EquipmentAName: "core-sw-1",
		PortAName:      "ge-0/0/1",
		EquipmentBName: "cam-lobby",
		PortBName:      "eth0",
	}
}

func TestResolve_ByCode(t *testing.T) {
	lookup := &fakeLookup{
		byCode: map[string]*domain.ConnectionDetail{
			"CON-00042": testDetail("11111111-0000-4000-8000-000000000001", "CON-00042"),
		},
	}
	r := NewResolver(lookup, zap.NewNop())

	// 小写键入也能命中：提取层统一规范化
	res, err := r.Resolve(context.Background(), "con-00042")
	require.NoError(t, err)
	assert.True(t, res.Outcome.Recognized)
	assert.True(t, res.Found)
	require.NotNil(t, res.Detail)
	assert.Equal(t, "CON-00042", res.Detail.Code)
	assert.Equal(t, "core-sw-1", res.Detail.EquipmentAName)
}

func TestResolve_ByUUID(t *testing.T) {
	id := "11111111-0000-4000-8000-000000000001"
	lookup := &fakeLookup{
		byID: map[string]*domain.ConnectionDetail{id: testDetail(id, "CON-00042")},
	}
	r := NewResolver(lookup, zap.NewNop())

	res, err := r.Resolve(context.Background(), "11111111-0000-4000-8000-000000000001")
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, id, res.Detail.ConnectionID)
}

func TestResolve_StructuredPayloadSkipsLookup(t *testing.T) {
	// 结构化载荷自带端点标签：即使存储为空也报 Found
	r := NewResolver(&fakeLookup{}, zap.NewNop())

	raw := `{"code":"CON-00042","a":{"eq":"e1","p":"p1"},"b":{"eq":"e2","p":"p2"}}`
	res, err := r.Resolve(context.Background(), raw)
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Nil(t, res.Detail)
	require.NotNil(t, res.Outcome.Payload)
	assert.Equal(t, "e1", res.Outcome.Payload.A.Equipment)
}

func TestResolve_NotRecognizedIsNotAnError(t *testing.T) {
	r := NewResolver(&fakeLookup{}, zap.NewNop())

	res, err := r.Resolve(context.Background(), "no code here")
	require.NoError(t, err)
	assert.False(t, res.Outcome.Recognized)
	assert.False(t, res.Found)
}

func TestResolve_RecognizedButNotFound(t *testing.T) {
	r := NewResolver(&fakeLookup{}, zap.NewNop())

	res, err := r.Resolve(context.Background(), "CON-99999")
	require.NoError(t, err)
	assert.True(t, res.Outcome.Recognized)
	assert.False(t, res.Found)
	assert.Nil(t, res.Detail)
}

func TestResolve_StoreFailureIsAnError(t *testing.T) {
	r := NewResolver(&fakeLookup{err: fmt.Errorf("connection refused")}, zap.NewNop())

	_, err := r.Resolve(context.Background(), "CON-00042")
	assert.Error(t, err)
}

func TestResolution_ToJSON(t *testing.T) {
	res := &Resolution{
		Outcome: Outcome{Recognized: true, Kind: KindCode, Key: "CON-00042", Matcher: "system_prefix"},
		Found:   true,
		Detail:  testDetail("id-1", "CON-00042"),
	}

	m := res.ToJSON()
	assert.Equal(t, true, m["recognized"])
	assert.Equal(t, true, m["found"])
	assert.Equal(t, "CON-00042", m["key"])
	conn, ok := m["connection"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "CON-00042", conn["code"])
}

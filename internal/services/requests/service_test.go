package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurehub/backend/constants"
	"github.com/procurehub/backend/internal/common"
	"github.com/procurehub/backend/internal/entity"
	"github.com/procurehub/backend/internal/llm"
	"github.com/procurehub/backend/internal/repository"
)

type fakeRequestRepo struct {
	byID   map[int64]*entity.Request
	nextID int64
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{byID: map[int64]*entity.Request{}}
}

func (r *fakeRequestRepo) Create(_ context.Context, req *entity.Request) (*entity.Request, error) {
	r.nextID++
	cp := *req
	cp.ID = r.nextID
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	for i := range cp.OrderLines {
		cp.OrderLines[i].ID = int64(i + 1)
		cp.OrderLines[i].RequestID = cp.ID
	}
	r.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeRequestRepo) GetByID(_ context.Context, id int64) (*entity.Request, error) {
	req, ok := r.byID[id]
	if !ok {
		return nil, common.WrapError(common.ErrNotFound, fmt.Sprintf("request %d", id))
	}
	out := *req
	return &out, nil
}

func (r *fakeRequestRepo) List(_ context.Context, f repository.RequestFilter) ([]*entity.Request, error) {
	var out []*entity.Request
	for _, req := range r.byID {
		if f.Status != nil && req.Status != *f.Status {
			continue
		}
		cp := *req
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeRequestRepo) Update(ctx context.Context, id int64, upd entity.RequestUpdate) (*entity.Request, error) {
	req, ok := r.byID[id]
	if !ok {
		return nil, common.WrapError(common.ErrNotFound, fmt.Sprintf("request %d", id))
	}
	if upd.Title != nil {
		req.Title = *upd.Title
	}
	if upd.VendorName != nil {
		req.VendorName = *upd.VendorName
	}
	if upd.CommodityGroupID != nil {
		req.CommodityGroupID = upd.CommodityGroupID
	}
	out := *req
	return &out, nil
}

func (r *fakeRequestRepo) UpdateStatus(_ context.Context, id int64, status constants.RequestStatus) (*entity.Request, error) {
	req, ok := r.byID[id]
	if !ok {
		return nil, common.WrapError(common.ErrNotFound, fmt.Sprintf("request %d", id))
	}
	req.Status = status
	out := *req
	return &out, nil
}

func (r *fakeRequestRepo) UpdateClassification(_ context.Context, id int64, groupID *int32, confidence *float64) error {
	req, ok := r.byID[id]
	if !ok {
		return common.WrapError(common.ErrNotFound, fmt.Sprintf("request %d", id))
	}
	req.CommodityGroupID = groupID
	req.CommodityGroupConfidence = confidence
	return nil
}

func (r *fakeRequestRepo) ReplaceOrderLines(_ context.Context, id int64, lines []entity.OrderLineCreate, totalCost decimal.Decimal) (*entity.Request, error) {
	req, ok := r.byID[id]
	if !ok {
		return nil, common.WrapError(common.ErrNotFound, fmt.Sprintf("request %d", id))
	}
	req.OrderLines = nil
	for i, l := range lines {
		req.OrderLines = append(req.OrderLines, entity.OrderLine{
			ID: int64(i + 1), RequestID: id,
			Description: l.Description, UnitPrice: l.UnitPrice,
			Amount: l.Amount, Unit: l.Unit, TotalPrice: l.TotalPrice,
		})
	}
	req.TotalCost = totalCost
	out := *req
	return &out, nil
}

func (r *fakeRequestRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.byID[id]; !ok {
		return common.WrapError(common.ErrNotFound, fmt.Sprintf("request %d", id))
	}
	delete(r.byID, id)
	return nil
}

type fakeGroupRepo struct {
	groups []entity.CommodityGroup
}

func (r *fakeGroupRepo) List(_ context.Context) ([]entity.CommodityGroup, error) {
	return r.groups, nil
}

func (r *fakeGroupRepo) GetByID(_ context.Context, id int32) (*entity.CommodityGroup, error) {
	for _, g := range r.groups {
		if g.ID == id {
			out := g
			return &out, nil
		}
	}
	return nil, common.WrapError(common.ErrNotFound, fmt.Sprintf("commodity group %d", id))
}

func (r *fakeGroupRepo) Search(_ context.Context, query string) ([]entity.CommodityGroup, error) {
	q := strings.ToLower(query)
	var out []entity.CommodityGroup
	for _, g := range r.groups {
		if strings.Contains(strings.ToLower(g.Name), q) || strings.Contains(strings.ToLower(g.Category), q) {
			out = append(out, g)
		}
	}
	return out, nil
}

type historyRow struct {
	requestID int64
	old       *string
	next      string
}

type fakeHistoryRepo struct {
	rows []historyRow
}

func (r *fakeHistoryRepo) Append(_ context.Context, requestID int64, old *string, next string) error {
	r.rows = append(r.rows, historyRow{requestID: requestID, old: old, next: next})
	return nil
}

func (r *fakeHistoryRepo) ListForRequest(_ context.Context, requestID int64) ([]entity.StatusHistory, error) {
	var out []entity.StatusHistory
	for i, row := range r.rows {
		if row.requestID != requestID {
			continue
		}
		out = append(out, entity.StatusHistory{
			ID: int64(i + 1), RequestID: requestID,
			OldStatus: row.old, NewStatus: row.next, ChangedAt: time.Now(),
		})
	}
	return out, nil
}

type stubClassifier struct {
	result entity.CommodityClassification
	err    error
	calls  int
}

func (c *stubClassifier) ClassifyRequest(_ context.Context, _ llm.ClassifyInput, _ []entity.CommodityGroup) (entity.CommodityClassification, error) {
	c.calls++
	return c.result, c.err
}

func (c *stubClassifier) ClassifyText(_ context.Context, _ string, _ []entity.CommodityGroup) (entity.CommodityClassification, error) {
	c.calls++
	return c.result, c.err
}

func int32Ptr(v int32) *int32 { return &v }

func money(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func validPayload() entity.RequestCreate {
	return entity.RequestCreate{
		RequestorName: "Erika Musterfrau",
		Title:         "Office licenses",
		VendorName:    "ACME Software GmbH",
		TotalCost:     money("1205.00"),
		OrderLines: []entity.OrderLineCreate{
			{Description: "Office license", UnitPrice: money("120.50"), Amount: money("10"), Unit: "licenses", TotalPrice: money("1205.00")},
		},
	}
}

func newTestService(repo *fakeRequestRepo, groups *fakeGroupRepo, history *fakeHistoryRepo, classifier Classifier) *Service {
	return NewService(repo, groups, history, classifier, time.Second, nil)
}

func TestCreateHappyPathAutoClassifies(t *testing.T) {
	repo := newFakeRequestRepo()
	groups := &fakeGroupRepo{groups: []entity.CommodityGroup{{ID: 7, Category: "IT", Name: "Software Licenses"}}}
	history := &fakeHistoryRepo{}
	classifier := &stubClassifier{result: entity.CommodityClassification{
		CommodityGroupID: int32Ptr(7), Confidence: 0.9, Reasoning: "software",
	}}
	svc := newTestService(repo, groups, history, classifier)

	created, err := svc.Create(context.Background(), validPayload(), CreateOptions{})
	require.NoError(t, err)

	assert.Equal(t, constants.StatusOpen, created.Status)
	require.NotNil(t, created.CommodityGroupID)
	assert.Equal(t, int32(7), *created.CommodityGroupID)
	assert.Equal(t, 1, classifier.calls)

	// initial history row has no old status
	require.Len(t, history.rows, 1)
	assert.Nil(t, history.rows[0].old)
	assert.Equal(t, "Open", history.rows[0].next)
}

func TestCreateClassificationFailureDoesNotBlock(t *testing.T) {
	repo := newFakeRequestRepo()
	groups := &fakeGroupRepo{groups: []entity.CommodityGroup{{ID: 7, Category: "IT", Name: "Software Licenses"}}}
	classifier := &stubClassifier{err: errors.New("model unavailable")}
	svc := newTestService(repo, groups, &fakeHistoryRepo{}, classifier)

	created, err := svc.Create(context.Background(), validPayload(), CreateOptions{})
	require.NoError(t, err)
	assert.Nil(t, created.CommodityGroupID)
}

func TestCreateSkipsClassifierWhenGroupGiven(t *testing.T) {
	repo := newFakeRequestRepo()
	groups := &fakeGroupRepo{groups: []entity.CommodityGroup{{ID: 7, Category: "IT", Name: "Software Licenses"}}}
	classifier := &stubClassifier{}
	svc := newTestService(repo, groups, &fakeHistoryRepo{}, classifier)

	p := validPayload()
	p.CommodityGroupID = int32Ptr(7)
	created, err := svc.Create(context.Background(), p, CreateOptions{})
	require.NoError(t, err)
	require.NotNil(t, created.CommodityGroupID)
	assert.Equal(t, 0, classifier.calls)
}

func TestCreateRejectsUnknownGroup(t *testing.T) {
	svc := newTestService(newFakeRequestRepo(), &fakeGroupRepo{}, &fakeHistoryRepo{}, nil)

	p := validPayload()
	p.CommodityGroupID = int32Ptr(42)
	_, err := svc.Create(context.Background(), p, CreateOptions{})

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Fields, 1)
	assert.Equal(t, "commodity_group_id", ve.Fields[0].Field)
}

func TestCreateValidationFailure(t *testing.T) {
	svc := newTestService(newFakeRequestRepo(), &fakeGroupRepo{}, &fakeHistoryRepo{}, nil)

	p := validPayload()
	p.RequestorName = ""
	p.OrderLines[0].Unit = ""
	_, err := svc.Create(context.Background(), p, CreateOptions{})

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	fields := make([]string, len(ve.Fields))
	for i, f := range ve.Fields {
		fields[i] = f.Field
	}
	assert.Contains(t, fields, "requestor_name")
	assert.Contains(t, fields, "order_lines[0].unit")
}

func TestCreateReconcilesLineTotals(t *testing.T) {
	repo := newFakeRequestRepo()
	svc := newTestService(repo, &fakeGroupRepo{}, &fakeHistoryRepo{}, nil)

	p := validPayload()
	p.OrderLines[0].TotalPrice = money("999.99") // wrong on purpose
	p.TotalCost = money("999.99")

	created, err := svc.Create(context.Background(), p, CreateOptions{})
	require.NoError(t, err)
	assert.True(t, created.OrderLines[0].TotalPrice.Equal(money("1205.00")))
	assert.True(t, created.TotalCost.Equal(money("1205.00")))
}

func TestUpdateStatusWorkflow(t *testing.T) {
	repo := newFakeRequestRepo()
	history := &fakeHistoryRepo{}
	svc := newTestService(repo, &fakeGroupRepo{}, history, nil)

	created, err := svc.Create(context.Background(), validPayload(), CreateOptions{})
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(context.Background(), created.ID, constants.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusInProgress, updated.Status)

	updated, err = svc.UpdateStatus(context.Background(), created.ID, constants.StatusClosed)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusClosed, updated.Status)

	// Closed is terminal
	_, err = svc.UpdateStatus(context.Background(), created.ID, constants.StatusOpen)
	require.Error(t, err)
	assert.True(t, common.IsCode(err, common.CodeInvalidTransition))

	rows, err := svc.History(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Nil(t, rows[0].OldStatus)
	assert.Equal(t, "In Progress", rows[1].NewStatus)
	assert.Equal(t, "Closed", rows[2].NewStatus)
}

func TestUpdateStatusRejectsBackwards(t *testing.T) {
	repo := newFakeRequestRepo()
	svc := newTestService(repo, &fakeGroupRepo{}, &fakeHistoryRepo{}, nil)

	created, err := svc.Create(context.Background(), validPayload(), CreateOptions{})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), created.ID, constants.StatusInProgress)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), created.ID, constants.StatusOpen)
	require.Error(t, err)
	assert.True(t, common.IsCode(err, common.CodeInvalidTransition))
}

func TestUpdateStatusUnknownStatus(t *testing.T) {
	svc := newTestService(newFakeRequestRepo(), &fakeGroupRepo{}, &fakeHistoryRepo{}, nil)

	_, err := svc.UpdateStatus(context.Background(), 1, constants.RequestStatus("Rejected"))
	require.Error(t, err)
	assert.True(t, common.IsCode(err, common.CodeInvalidTransition))
}

func TestUpdateStatusNoOpRejected(t *testing.T) {
	repo := newFakeRequestRepo()
	svc := newTestService(repo, &fakeGroupRepo{}, &fakeHistoryRepo{}, nil)

	created, err := svc.Create(context.Background(), validPayload(), CreateOptions{})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), created.ID, constants.StatusOpen)
	require.Error(t, err)
	assert.True(t, common.IsCode(err, common.CodeInvalidTransition))
}

func TestReplaceOrderLinesRecomputesTotal(t *testing.T) {
	repo := newFakeRequestRepo()
	svc := newTestService(repo, &fakeGroupRepo{}, &fakeHistoryRepo{}, nil)

	created, err := svc.Create(context.Background(), validPayload(), CreateOptions{})
	require.NoError(t, err)

	updated, err := svc.ReplaceOrderLines(context.Background(), created.ID, []entity.OrderLineCreate{
		{Description: "Keyboard", UnitPrice: money("49.90"), Amount: money("3"), Unit: "pieces"},
	})
	require.NoError(t, err)
	require.Len(t, updated.OrderLines, 1)
	assert.True(t, updated.OrderLines[0].TotalPrice.Equal(money("149.70")))
	assert.True(t, updated.TotalCost.Equal(money("149.70")))
}

func TestClassifyText(t *testing.T) {
	classifier := &stubClassifier{result: entity.CommodityClassification{
		CommodityGroupID: int32Ptr(3), Confidence: 0.8, Reasoning: "supplies",
	}}
	groups := &fakeGroupRepo{groups: []entity.CommodityGroup{{ID: 3, Category: "Facilities", Name: "Office Supplies"}}}
	svc := newTestService(newFakeRequestRepo(), groups, &fakeHistoryRepo{}, classifier)

	out, err := svc.ClassifyText(context.Background(), "pens and paper")
	require.NoError(t, err)
	require.NotNil(t, out.CommodityGroupID)
	assert.Equal(t, int32(3), *out.CommodityGroupID)
}

func TestHistoryUnknownRequest(t *testing.T) {
	svc := newTestService(newFakeRequestRepo(), &fakeGroupRepo{}, &fakeHistoryRepo{}, nil)

	_, err := svc.History(context.Background(), 99)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCreateKeepsAlreadySanitizedPrefill(t *testing.T) {
	// offer extraction sanitizes its output once before it prefills the form;
	// posting that prefill must not escape the escapes a second time
	repo := newFakeRequestRepo()
	svc := newTestService(repo, &fakeGroupRepo{}, &fakeHistoryRepo{}, nil)

	p := validPayload()
	p.VendorName = "ACME &amp; Söhne GmbH"
	dept := "R&amp;D"
	p.Department = &dept

	created, err := svc.Create(context.Background(), p, CreateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "ACME &amp; Söhne GmbH", created.VendorName)
	require.NotNil(t, created.Department)
	assert.Equal(t, "R&amp;D", *created.Department)
}

func TestSearchCommodityGroups(t *testing.T) {
	groups := &fakeGroupRepo{groups: []entity.CommodityGroup{
		{ID: 1, Category: "IT", Name: "Software Licenses"},
		{ID: 2, Category: "IT", Name: "Hardware"},
		{ID: 3, Category: "Facilities", Name: "Office Supplies"},
	}}
	svc := newTestService(newFakeRequestRepo(), groups, &fakeHistoryRepo{}, nil)

	out, err := svc.SearchCommodityGroups(context.Background(), "  software ")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int32(1), out[0].ID)

	// blank query falls back to the full taxonomy
	out, err = svc.SearchCommodityGroups(context.Background(), "   ")
	require.NoError(t, err)
	assert.Len(t, out, 3)
}

func TestGetCommodityGroup(t *testing.T) {
	groups := &fakeGroupRepo{groups: []entity.CommodityGroup{
		{ID: 2, Category: "IT", Name: "Hardware"},
	}}
	svc := newTestService(newFakeRequestRepo(), groups, &fakeHistoryRepo{}, nil)

	g, err := svc.GetCommodityGroup(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Hardware", g.Name)

	_, err = svc.GetCommodityGroup(context.Background(), 99)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

package tasks_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/Alexjoshwa/agri-1.0/internal/models"
	"github.com/Alexjoshwa/agri-1.0/internal/tasks"
)

// --- Mocks ---

type MockPriceService struct {
	mock.Mock
}

func (m *MockPriceService) List(ctx context.Context, market string) []models.PriceQuote {
	args := m.Called(ctx, market)
	return args.Get(0).([]models.PriceQuote)
}

func (m *MockPriceService) Markets(ctx context.Context) []string {
	args := m.Called(ctx)
	return args.Get(0).([]string)
}

func (m *MockPriceService) Refresh(ctx context.Context) ([]models.PriceQuote, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PriceQuote), args.Error(1)
}

type MockOrderLister struct {
	mock.Mock
}

func (m *MockOrderLister) PlaceOrder(ctx context.Context, actor *models.SessionIdentity, listingID string, quantity float64, hint *float64) (*models.Order, error) {
	panic("not used")
}
func (m *MockOrderLister) Accept(ctx context.Context, actor *models.SessionIdentity, orderID string) (*models.Order, error) {
	panic("not used")
}
func (m *MockOrderLister) Complete(ctx context.Context, actor *models.SessionIdentity, orderID string) (*models.Order, error) {
	panic("not used")
}
func (m *MockOrderLister) Cancel(ctx context.Context, actor *models.SessionIdentity, orderID string) (*models.Order, error) {
	panic("not used")
}
func (m *MockOrderLister) ToggleAccept(ctx context.Context, orderID string) (*models.Order, error) {
	panic("not used")
}
func (m *MockOrderLister) AcceptForListing(ctx context.Context, actor *models.SessionIdentity, listingID string) (*models.Order, error) {
	panic("not used")
}
func (m *MockOrderLister) List(ctx context.Context) []models.Order {
	args := m.Called(ctx)
	return args.Get(0).([]models.Order)
}
func (m *MockOrderLister) FindByID(ctx context.Context, orderID string) (*models.Order, error) {
	panic("not used")
}
func (m *MockOrderLister) ListForParticipant(ctx context.Context, name string) []models.Order {
	panic("not used")
}

type MockConversationService struct {
	mock.Mock
}

func (m *MockConversationService) EnsureForOrder(ctx context.Context, order models.Order, message string) (*models.Conversation, error) {
	args := m.Called(ctx, order, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}
func (m *MockConversationService) EnsureForListingInquiry(ctx context.Context, actor *models.SessionIdentity, listingID string) (*models.Conversation, error) {
	panic("not used")
}
func (m *MockConversationService) PostMessage(ctx context.Context, conversationID, fromName, text string) (*models.Message, error) {
	panic("not used")
}
func (m *MockConversationService) List(ctx context.Context) []models.Conversation {
	panic("not used")
}
func (m *MockConversationService) FindByID(ctx context.Context, conversationID string) (*models.Conversation, error) {
	panic("not used")
}
func (m *MockConversationService) ListForParticipant(ctx context.Context, name string) []models.Conversation {
	panic("not used")
}

// --- Tests ---

func TestHandlePriceRefreshTask_Success(t *testing.T) {
	prices := new(MockPriceService)
	p := tasks.NewTaskProcessor(prices, nil, nil, zap.NewNop().Sugar())

	prices.On("Refresh", mock.Anything).Return([]models.PriceQuote{{ID: "p_1"}}, nil)

	err := p.HandlePriceRefreshTask(context.Background(), tasks.NewPriceRefreshTask())
	assert.NoError(t, err)
	prices.AssertExpectations(t)
}

func TestHandlePriceRefreshTask_Failure(t *testing.T) {
	prices := new(MockPriceService)
	p := tasks.NewTaskProcessor(prices, nil, nil, zap.NewNop().Sugar())

	prices.On("Refresh", mock.Anything).Return(nil, errors.New("redis down"))

	err := p.HandlePriceRefreshTask(context.Background(), asynq.NewTask(tasks.TypePriceRefresh, nil))
	assert.ErrorContains(t, err, "redis down")
}

func TestHandleOrderThreadsRepairTask(t *testing.T) {
	orders := new(MockOrderLister)
	convos := new(MockConversationService)
	p := tasks.NewTaskProcessor(nil, orders, convos, zap.NewNop().Sugar())

	o1 := models.Order{ID: "o_1", BuyerName: "Asha", SellerName: "Ramesh"}
	o2 := models.Order{ID: "o_2", BuyerName: "Ravi", SellerName: "Ramesh"}
	orders.On("List", mock.Anything).Return([]models.Order{o1, o2})
	convos.On("EnsureForOrder", mock.Anything, o1, "").Return(&models.Conversation{ID: "c_1"}, nil)
	convos.On("EnsureForOrder", mock.Anything, o2, "").Return(nil, errors.New("boom"))

	err := p.HandleOrderThreadsRepairTask(context.Background(), tasks.NewOrderThreadsRepairTask())
	assert.ErrorContains(t, err, "1 orders failed")
	convos.AssertNumberOfCalls(t, "EnsureForOrder", 2)
}

func TestNewTasks_Types(t *testing.T) {
	assert.Equal(t, tasks.TypePriceRefresh, tasks.NewPriceRefreshTask().Type())
	assert.Equal(t, tasks.TypeOrderThreadsRepair, tasks.NewOrderThreadsRepairTask().Type())
	assert.Nil(t, tasks.NewPriceRefreshTask().Payload())
}

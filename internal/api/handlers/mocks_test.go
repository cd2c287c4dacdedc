package handlers_test

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"

	"github.com/Alexjoshwa/agri-1.0/internal/models"
	"github.com/Alexjoshwa/agri-1.0/internal/services"
)

// --- Mocks ---

// MockListingService implements services.IListingService
type MockListingService struct {
	mock.Mock
}

func (m *MockListingService) Publish(ctx context.Context, actor *models.SessionIdentity, input services.PublishListingInput) (*models.Listing, error) {
	args := m.Called(ctx, actor, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) List(ctx context.Context) []models.Listing {
	args := m.Called(ctx)
	return args.Get(0).([]models.Listing)
}

func (m *MockListingService) FindByID(ctx context.Context, listingID string) (*models.Listing, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) SearchListings(ctx context.Context, query, cropFilter string) []models.Listing {
	args := m.Called(ctx, query, cropFilter)
	return args.Get(0).([]models.Listing)
}

func (m *MockListingService) ListCrops(ctx context.Context) []string {
	args := m.Called(ctx)
	return args.Get(0).([]string)
}

// MockOrderService implements services.IOrderService
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) orderResult(args mock.Arguments) (*models.Order, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderService) PlaceOrder(ctx context.Context, actor *models.SessionIdentity, listingID string, quantity float64, agreedPriceHint *float64) (*models.Order, error) {
	return m.orderResult(m.Called(ctx, actor, listingID, quantity, agreedPriceHint))
}

func (m *MockOrderService) Accept(ctx context.Context, actor *models.SessionIdentity, orderID string) (*models.Order, error) {
	return m.orderResult(m.Called(ctx, actor, orderID))
}

func (m *MockOrderService) Complete(ctx context.Context, actor *models.SessionIdentity, orderID string) (*models.Order, error) {
	return m.orderResult(m.Called(ctx, actor, orderID))
}

func (m *MockOrderService) Cancel(ctx context.Context, actor *models.SessionIdentity, orderID string) (*models.Order, error) {
	return m.orderResult(m.Called(ctx, actor, orderID))
}

func (m *MockOrderService) ToggleAccept(ctx context.Context, orderID string) (*models.Order, error) {
	return m.orderResult(m.Called(ctx, orderID))
}

func (m *MockOrderService) AcceptForListing(ctx context.Context, actor *models.SessionIdentity, listingID string) (*models.Order, error) {
	return m.orderResult(m.Called(ctx, actor, listingID))
}

func (m *MockOrderService) List(ctx context.Context) []models.Order {
	args := m.Called(ctx)
	return args.Get(0).([]models.Order)
}

func (m *MockOrderService) FindByID(ctx context.Context, orderID string) (*models.Order, error) {
	return m.orderResult(m.Called(ctx, orderID))
}

func (m *MockOrderService) ListForParticipant(ctx context.Context, name string) []models.Order {
	args := m.Called(ctx, name)
	return args.Get(0).([]models.Order)
}

// MockConversationService implements services.IConversationService
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
	args := m.Called(ctx, actor, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *MockConversationService) PostMessage(ctx context.Context, conversationID, fromName, text string) (*models.Message, error) {
	args := m.Called(ctx, conversationID, fromName, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockConversationService) List(ctx context.Context) []models.Conversation {
	args := m.Called(ctx)
	return args.Get(0).([]models.Conversation)
}

func (m *MockConversationService) FindByID(ctx context.Context, conversationID string) (*models.Conversation, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *MockConversationService) ListForParticipant(ctx context.Context, name string) []models.Conversation {
	args := m.Called(ctx, name)
	return args.Get(0).([]models.Conversation)
}

// MockSessionService implements services.ISessionService
type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) SignIn(ctx context.Context, name string, role models.Role) (*services.SignInResult, error) {
	args := m.Called(ctx, name, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SignInResult), args.Error(1)
}

func (m *MockSessionService) Current(ctx context.Context) (*models.SessionIdentity, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SessionIdentity), args.Error(1)
}

func (m *MockSessionService) SignOut(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockSessionService) Resolve(token string) (*models.SessionIdentity, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SessionIdentity), args.Error(1)
}

// MockPriceService implements services.IPriceService
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

// MockAsynqClient implements tasks.IAsynqClient
type MockAsynqClient struct {
	mock.Mock
}

func (m *MockAsynqClient) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	mockArgs := []interface{}{ctx, task}
	for _, opt := range opts {
		mockArgs = append(mockArgs, opt)
	}
	args := m.Called(mockArgs...)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Alexjoshwa/agri-1.0/internal/api/middleware"
	"github.com/Alexjoshwa/agri-1.0/internal/models"
	"github.com/Alexjoshwa/agri-1.0/internal/services"
	"github.com/Alexjoshwa/agri-1.0/internal/tasks"
)

// JsonApiRequest defines the expected structure for JSON API requests.
type JsonApiRequest struct {
	Method    string          `json:"method"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// JsonApiResponse defines the structure for JSON API responses.
type JsonApiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// apiMethodFunc defines the signature for handler methods.
type apiMethodFunc func(c *gin.Context, args json.RawMessage) (interface{}, *ApiError)

// CallObserver is notified once per dispatched method.
type CallObserver interface {
	ObserveAPICall(method string, success bool, elapsed time.Duration)
}

// JsonApiHandler holds dependencies for handling JSON API requests.
type JsonApiHandler struct {
	listingService      services.IListingService
	orderService        services.IOrderService
	conversationService services.IConversationService
	sessionService      services.ISessionService
	priceService        services.IPriceService
	taskClient          tasks.IAsynqClient // nil refreshes prices inline
	observer            CallObserver       // optional
	log                 *zap.SugaredLogger
	methods             map[string]apiMethodFunc
}

// NewJsonApiHandler creates a new handler for the JSON API endpoint.
func NewJsonApiHandler(
	listingService services.IListingService,
	orderService services.IOrderService,
	conversationService services.IConversationService,
	sessionService services.ISessionService,
	priceService services.IPriceService,
	taskClient tasks.IAsynqClient,
	observer CallObserver,
	log *zap.SugaredLogger,
) *JsonApiHandler {
	h := &JsonApiHandler{
		listingService:      listingService,
		orderService:        orderService,
		conversationService: conversationService,
		sessionService:      sessionService,
		priceService:        priceService,
		taskClient:          taskClient,
		observer:            observer,
		log:                 log,
	}
	h.methods = map[string]apiMethodFunc{
		"ping":                    h.ping,
		"signIn":                  h.signIn,
		"signOut":                 h.signOut,
		"currentUser":             h.currentUser,
		"publishListing":          h.publishListing,
		"searchListings":          h.searchListings,
		"listCrops":               h.listCrops,
		"getListing":              h.getListing,
		"placeOrder":              h.placeOrder,
		"toggleAccept":            h.toggleAccept,
		"acceptOrder":             h.acceptOrder,
		"completeOrder":           h.completeOrder,
		"cancelOrder":             h.cancelOrder,
		"acceptForListing":        h.acceptForListing,
		"listOrders":              h.listOrders,
		"openListingConversation": h.openListingConversation,
		"ensureOrderConversation": h.ensureOrderConversation,
		"postMessage":             h.postMessage,
		"listConversations":       h.listConversations,
		"getConversation":         h.getConversation,
		"listPrices":              h.listPrices,
		"refreshPrices":           h.refreshPrices,
	}
	return h
}

// HandleRequest is the main entry point for POST /v1/api
func (h *JsonApiHandler) HandleRequest(c *gin.Context) {
	bodyBytes, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.sendErrorResponse(c, "Failed to read request body")
		return
	}

	var req JsonApiRequest
	if err := json.Unmarshal(bodyBytes, &req); err != nil {
		h.sendErrorResponse(c, "Invalid JSON request format")
		return
	}

	handlerFunc, ok := h.methods[req.Method]
	if !ok {
		h.sendErrorResponse(c, fmt.Sprintf("Unknown method: %s", req.Method))
		return
	}

	start := time.Now()
	result, apiErr := handlerFunc(c, req.Arguments)
	if h.observer != nil {
		h.observer.ObserveAPICall(req.Method, apiErr == nil, time.Since(start))
	}
	if apiErr != nil {
		h.sendErrorResponse(c, apiErr.Message)
		return
	}

	h.sendSuccessResponse(c, result)
}

type ApiError struct {
	Message string
}

func (e *ApiError) Error() string {
	return e.Message
}

func NewApiError(message string) *ApiError {
	return &ApiError{Message: message}
}

// --- Private helper methods ---

func (h *JsonApiHandler) sendSuccessResponse(c *gin.Context, data interface{}) {
	resp := JsonApiResponse{Success: true, Data: data}
	c.JSON(http.StatusOK, resp)
}

func (h *JsonApiHandler) sendErrorResponse(c *gin.Context, message string) {
	resp := JsonApiResponse{Success: false, Error: message}
	c.JSON(http.StatusOK, resp)
}

// serviceError maps a service failure to the message the client sees.
// Domain errors carry their own wording; anything else is logged and hidden.
func (h *JsonApiHandler) serviceError(op string, err error) *ApiError {
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrUnauthorized),
		errors.Is(err, services.ErrNotFound):
		return NewApiError(err.Error())
	default:
		h.log.Errorw("API method failed", "method", op, "error", err)
		return NewApiError(fmt.Sprintf("Failed to %s", op))
	}
}

func (h *JsonApiHandler) parseRequiredSingleArgFromArray(rawArgPayload json.RawMessage, targetVarPtr interface{}) *ApiError {
	var argArray []json.RawMessage
	if rawArgPayload == nil {
		return NewApiError("Missing 'arguments' field; expected a JSON array with one argument.")
	}

	if err := json.Unmarshal(rawArgPayload, &argArray); err != nil {
		return NewApiError("Invalid 'arguments': expected a JSON array.")
	}

	if len(argArray) == 0 {
		return NewApiError("Invalid 'arguments': array is empty, but one argument is expected.")
	}

	return decodeArg(argArray[0], targetVarPtr)
}

// parseOptionalSingleArgFromArray accepts a missing or empty 'arguments' and
// leaves the target untouched in that case.
func (h *JsonApiHandler) parseOptionalSingleArgFromArray(rawArgPayload json.RawMessage, targetVarPtr interface{}) *ApiError {
	if rawArgPayload == nil || string(rawArgPayload) == "null" {
		return nil
	}
	var argArray []json.RawMessage
	if err := json.Unmarshal(rawArgPayload, &argArray); err != nil {
		return NewApiError("Invalid 'arguments': expected a JSON array.")
	}
	if len(argArray) == 0 {
		return nil
	}
	return decodeArg(argArray[0], targetVarPtr)
}

func decodeArg(data json.RawMessage, targetVarPtr interface{}) *ApiError {
	if err := json.Unmarshal(data, targetVarPtr); err != nil {
		var numErr *numberFormatError
		if errors.As(err, &numErr) {
			return NewApiError(fmt.Sprintf("%v: %s", services.ErrValidation, numErr.Error()))
		}
		return NewApiError("Invalid format for argument: the first element in 'arguments' array has unexpected structure.")
	}
	return nil
}

// numberFormatError reports a form field that does not hold a number.
type numberFormatError struct {
	raw string
}

func (e *numberFormatError) Error() string {
	return fmt.Sprintf("%q is not a number", e.raw)
}

// flexNumber accepts a JSON number or a numeric string, the way form inputs
// arrive. An empty string or null leaves it unset.
type flexNumber struct {
	Value float64
	Set   bool
}

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*n = flexNumber{}
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			*n = flexNumber{}
			return nil
		}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return &numberFormatError{raw: raw}
	}
	*n = flexNumber{Value: v, Set: true}
	return nil
}

func (n flexNumber) ptr() *float64 {
	if !n.Set {
		return nil
	}
	v := n.Value
	return &v
}

// --- API Method Implementations ---

func (h *JsonApiHandler) ping(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	_ = args
	return "pong", nil
}

// --- Session ---

type signInArgs struct {
	Name string      `json:"name"`
	Role models.Role `json:"role"`
}

func (h *JsonApiHandler) signIn(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs signInArgs
	if apiErr := h.parseRequiredSingleArgFromArray(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	result, err := h.sessionService.SignIn(c.Request.Context(), reqArgs.Name, reqArgs.Role)
	if err != nil {
		return nil, h.serviceError("sign in", err)
	}
	return result, nil
}

func (h *JsonApiHandler) signOut(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	_ = args
	if err := h.sessionService.SignOut(c.Request.Context()); err != nil {
		return nil, h.serviceError("sign out", err)
	}
	return true, nil
}

func (h *JsonApiHandler) currentUser(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	_ = args
	actor := middleware.ActorFromContext(c)
	return gin.H{
		"identity":     actor,
		"display_name": actor.DisplayName(),
	}, nil
}

// --- Listings ---

type publishListingArgs struct {
	OwnerName     string      `json:"name"`
	OwnerRole     models.Role `json:"role"`
	Crop          string      `json:"crop"`
	Grade         string      `json:"grade"`
	Quantity      flexNumber  `json:"qty"`
	Unit          string      `json:"unit"`
	Price         flexNumber  `json:"price"`
	AvailableFrom string      `json:"available_from"`
	Location      string      `json:"location"`
	Notes         string      `json:"notes"`
}

func (h *JsonApiHandler) publishListing(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs publishListingArgs
	if apiErr := h.parseRequiredSingleArgFromArray(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	input := services.PublishListingInput{
		OwnerName:     reqArgs.OwnerName,
		OwnerRole:     reqArgs.OwnerRole,
		Crop:          reqArgs.Crop,
		Grade:         reqArgs.Grade,
		Quantity:      reqArgs.Quantity.Value,
		Unit:          reqArgs.Unit,
		Price:         reqArgs.Price.ptr(),
		AvailableFrom: reqArgs.AvailableFrom,
		Location:      reqArgs.Location,
		Notes:         reqArgs.Notes,
	}
	listing, err := h.listingService.Publish(c.Request.Context(), middleware.ActorFromContext(c), input)
	if err != nil {
		return nil, h.serviceError("publish listing", err)
	}
	return listing, nil
}

type searchListingsArgs struct {
	Query string `json:"q"`
	Crop  string `json:"crop"`
}

func (h *JsonApiHandler) searchListings(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs searchListingsArgs
	if apiErr := h.parseOptionalSingleArgFromArray(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	return h.listingService.SearchListings(c.Request.Context(), reqArgs.Query, reqArgs.Crop), nil
}

func (h *JsonApiHandler) listCrops(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	_ = args
	return h.listingService.ListCrops(c.Request.Context()), nil
}

type listingIDArgs struct {
	ListingID string `json:"listing_id"`
}

func (h *JsonApiHandler) getListing(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs listingIDArgs
	if apiErr := h.parseRequiredSingleArgFromArray(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	listing, err := h.listingService.FindByID(c.Request.Context(), reqArgs.ListingID)
	if err != nil {
		return nil, h.serviceError("get listing", err)
	}
	return listing, nil
}

// --- Orders ---

type placeOrderArgs struct {
	ListingID string     `json:"listing_id"`
	Quantity  flexNumber `json:"quantity"`
	Price     flexNumber `json:"price"`
}

func (h *JsonApiHandler) placeOrder(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs placeOrderArgs
	if apiErr := h.parseRequiredSingleArgFromArray(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	order, err := h.orderService.PlaceOrder(
		c.Request.Context(),
		middleware.ActorFromContext(c),
		reqArgs.ListingID,
		reqArgs.Quantity.Value,
		reqArgs.Price.ptr(),
	)
	if err != nil {
		return nil, h.serviceError("place order", err)
	}
	return order, nil
}

type orderIDArgs struct {
	OrderID string `json:"order_id"`
}

func (h *JsonApiHandler) toggleAccept(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs orderIDArgs
	if apiErr := h.parseRequiredSingleArgFromArray(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	order, err := h.orderService.ToggleAccept(c.Request.Context(), reqArgs.OrderID)
	if err != nil {
		return nil, h.serviceError("toggle order", err)
	}
	return order, nil
}

func (h *JsonApiHandler) acceptOrder(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs orderIDArgs
	if apiErr := h.parseRequiredSingleArgFromArray(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	order, err := h.orderService.Accept(c.Request.Context(), middleware.ActorFromContext(c), reqArgs.OrderID)
	if err != nil {
		return nil, h.serviceError("accept order", err)
	}
	return order, nil
}

func (h *JsonApiHandler) completeOrder(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs orderIDArgs
	if apiErr := h.parseRequiredSingleArgFromArray(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	order, err := h.orderService.Complete(c.Request.Context(), middleware.ActorFromContext(c), reqArgs.OrderID)
	if err != nil {
		return nil, h.serviceError("complete order", err)
	}
	return order, nil
}

func (h *JsonApiHandler) cancelOrder(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs orderIDArgs
	if apiErr := h.parseRequiredSingleArgFromArray(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	order, err := h.orderService.Cancel(c.Request.Context(), middleware.ActorFromContext(c), reqArgs.OrderID)
	if err != nil {
		return nil, h.serviceError("cancel order", err)
	}
	return order, nil
}

func (h *JsonApiHandler) acceptForListing(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs listingIDArgs
	if apiErr := h.parseRequiredSingleArgFromArray(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	order, err := h.orderService.AcceptForListing(c.Request.Context(), middleware.ActorFromContext(c), reqArgs.ListingID)
	if err != nil {
		return nil, h.serviceError("accept order", err)
	}
	return order, nil
}

type mineArgs struct {
	Mine bool `json:"mine"`
}

func (h *JsonApiHandler) listOrders(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs mineArgs
	if apiErr := h.parseOptionalSingleArgFromArray(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	ctx := c.Request.Context()
	if reqArgs.Mine {
		return h.orderService.ListForParticipant(ctx, middleware.ActorFromContext(c).DisplayName()), nil
	}
	return h.orderService.List(ctx), nil
}

// --- Conversations ---

func (h *JsonApiHandler) openListingConversation(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs listingIDArgs
	if apiErr := h.parseRequiredSingleArgFromArray(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	convo, err := h.conversationService.EnsureForListingInquiry(c.Request.Context(), middleware.ActorFromContext(c), reqArgs.ListingID)
	if err != nil {
		return nil, h.serviceError("open conversation", err)
	}
	return convo, nil
}

func (h *JsonApiHandler) ensureOrderConversation(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs orderIDArgs
	if apiErr := h.parseRequiredSingleArgFromArray(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	ctx := c.Request.Context()
	order, err := h.orderService.FindByID(ctx, reqArgs.OrderID)
	if err != nil {
		return nil, h.serviceError("open conversation", err)
	}
	convo, err := h.conversationService.EnsureForOrder(ctx, *order, "")
	if err != nil {
		return nil, h.serviceError("open conversation", err)
	}
	return convo, nil
}

type postMessageArgs struct {
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
}

func (h *JsonApiHandler) postMessage(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs postMessageArgs
	if apiErr := h.parseRequiredSingleArgFromArray(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	from := middleware.ActorFromContext(c).DisplayName()
	msg, err := h.conversationService.PostMessage(c.Request.Context(), reqArgs.ConversationID, from, reqArgs.Text)
	if err != nil {
		return nil, h.serviceError("post message", err)
	}
	return msg, nil
}

func (h *JsonApiHandler) listConversations(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs mineArgs
	if apiErr := h.parseOptionalSingleArgFromArray(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	ctx := c.Request.Context()
	if reqArgs.Mine {
		return h.conversationService.ListForParticipant(ctx, middleware.ActorFromContext(c).DisplayName()), nil
	}
	return h.conversationService.List(ctx), nil
}

type conversationIDArgs struct {
	ConversationID string `json:"conversation_id"`
}

func (h *JsonApiHandler) getConversation(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs conversationIDArgs
	if apiErr := h.parseRequiredSingleArgFromArray(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	convo, err := h.conversationService.FindByID(c.Request.Context(), reqArgs.ConversationID)
	if err != nil {
		return nil, h.serviceError("get conversation", err)
	}
	return convo, nil
}

// --- Prices ---

type listPricesArgs struct {
	Market string `json:"market"`
}

func (h *JsonApiHandler) listPrices(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs listPricesArgs
	if apiErr := h.parseOptionalSingleArgFromArray(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	ctx := c.Request.Context()
	return gin.H{
		"quotes":  h.priceService.List(ctx, reqArgs.Market),
		"markets": h.priceService.Markets(ctx),
	}, nil
}

// refreshPrices queues the refresh when a task client is configured and
// otherwise applies it before responding.
func (h *JsonApiHandler) refreshPrices(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	_ = args
	ctx := c.Request.Context()
	if h.taskClient != nil {
		info, err := h.taskClient.EnqueueContext(ctx, tasks.NewPriceRefreshTask())
		if err != nil {
			h.log.Errorw("Failed to enqueue price refresh", "error", err)
			return nil, NewApiError("Failed to queue price refresh")
		}
		return gin.H{"queued": true, "task_id": info.ID}, nil
	}
	quotes, err := h.priceService.Refresh(ctx)
	if err != nil {
		return nil, h.serviceError("refresh prices", err)
	}
	return gin.H{"queued": false, "quotes": quotes}, nil
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/events"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/models"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/testutil"
)

type BulkRequestServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	fx        *fixture
	processor *models.User
	rival     *models.User
	farmer    *models.User
	fpo       *models.User
	consumer  *models.User
}

func (suite *BulkRequestServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.fx = newFixture(suite.T(), TransitionPolicy{})

	db := suite.fx.db
	suite.processor = testutil.CreateUser(suite.T(), db, "Deccan Millet Foods", models.RoleProcessor)
	suite.rival = testutil.CreateUser(suite.T(), db, "Other Processor", models.RoleProcessor)
	suite.farmer = testutil.CreateUser(suite.T(), db, "Lakshmi", models.RoleFarmer)
	suite.fpo = testutil.CreateUser(suite.T(), db, "Kolar FPO", models.RoleFPO)
	suite.consumer = testutil.CreateUser(suite.T(), db, "Anita", models.RoleConsumer)
}

func (suite *BulkRequestServiceTestSuite) requests() *BulkRequestService {
	return suite.fx.svc.BulkRequests
}

func demand(cropType string) CreateBulkRequestRequest {
	return CreateBulkRequestRequest{
		CropType: cropType,
		Quantity: decimal.NewFromInt(5000),
		Unit:     "kg",
		PriceRange: models.PriceRange{
			Min: decimal.NewFromInt(30),
			Max: decimal.NewFromInt(42),
		},
		QualityRequirements: []string{"moisture < 12%"},
		DeliveryLocation:    models.Location{District: "Mysuru", State: "Karnataka", Pincode: "570001"},
	}
}

func offer(qty, price int64) SubmitOfferRequest {
	return SubmitOfferRequest{Quantity: decimal.NewFromInt(qty), Price: decimal.NewFromInt(price), Message: "Harvested last week"}
}

func (suite *BulkRequestServiceTestSuite) openRequest() *models.BulkRequest {
	request, _, err := suite.requests().CreateRequest(suite.ctx, principalOf(suite.processor), demand("ragi"), "")
	suite.Require().NoError(err)
	return request
}

func offersJSON(t *testing.T, r *models.BulkRequest) string {
	data, err := json.Marshal(r.Offers)
	require.NoError(t, err)
	return string(data)
}

func (suite *BulkRequestServiceTestSuite) TestCreateRequest() {
	request := suite.openRequest()

	assert.Regexp(suite.T(), `^REQ-\d+-[0-9A-Z]{6}$`, request.RequestNumber)
	assert.Equal(suite.T(), models.RequestStatusOpen, request.Status)
	assert.Empty(suite.T(), request.Offers)
	assert.Equal(suite.T(), suite.processor.ID, request.ProcessorID)

	stored, err := suite.requests().Get(suite.ctx, request.RequestNumber)
	require.NoError(suite.T(), err)
	assert.NotNil(suite.T(), stored.Offers)
	assert.Equal(suite.T(), []string{"moisture < 12%"}, []string(stored.QualityRequirements))
}

func (suite *BulkRequestServiceTestSuite) TestCreateRequestValidation() {
	_, _, err := suite.requests().CreateRequest(suite.ctx, principalOf(suite.farmer), demand("ragi"), "")
	assert.ErrorIs(suite.T(), err, ErrForbidden)

	bad := demand("ragi")
	bad.PriceRange.Min = decimal.NewFromInt(50)
	_, _, err = suite.requests().CreateRequest(suite.ctx, principalOf(suite.processor), bad, "")
	assert.ErrorIs(suite.T(), err, ErrInvalidPriceRange)

	bad = demand("")
	_, _, err = suite.requests().CreateRequest(suite.ctx, principalOf(suite.processor), bad, "")
	assert.ErrorIs(suite.T(), err, ErrInvalidInput)

	bad = demand("ragi")
	bad.DeliveryLocation.Pincode = "12"
	_, _, err = suite.requests().CreateRequest(suite.ctx, principalOf(suite.processor), bad, "")
	assert.ErrorIs(suite.T(), err, ErrInvalidInput)
}

func (suite *BulkRequestServiceTestSuite) TestCreateRequestIdempotencyKey() {
	first, _, err := suite.requests().CreateRequest(suite.ctx, principalOf(suite.processor), demand("ragi"), "abc")
	require.NoError(suite.T(), err)
	second, replayed, err := suite.requests().CreateRequest(suite.ctx, principalOf(suite.processor), demand("ragi"), "abc")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), replayed)
	assert.Equal(suite.T(), first.ID, second.ID)
}

// Duplicate offer, then acceptance that leaves the request open.
func (suite *BulkRequestServiceTestSuite) TestNegotiationScenario() {
	request := suite.openRequest()
	farmer := principalOf(suite.farmer)

	updated, err := suite.requests().SubmitOffer(suite.ctx, farmer, request.ID.String(), offer(800, 38))
	require.NoError(suite.T(), err)
	require.Len(suite.T(), updated.Offers, 1)
	first := updated.Offers[0]
	assert.Equal(suite.T(), models.OfferStatusPending, first.Status)
	assert.Equal(suite.T(), suite.farmer.ID, first.FarmerID)

	_, err = suite.requests().SubmitOffer(suite.ctx, farmer, request.ID.String(), offer(1, 1))
	assert.ErrorIs(suite.T(), err, ErrDuplicateOffer)
	assert.ErrorIs(suite.T(), err, ErrConflict)

	resolved, err := suite.requests().ResolveOffer(suite.ctx, principalOf(suite.processor), request.RequestNumber, first.ID, models.OfferStatusAccepted)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), resolved.Offers, 1)
	assert.Equal(suite.T(), models.OfferStatusAccepted, resolved.Offers[0].Status)
	assert.NotNil(suite.T(), resolved.Offers[0].ResolvedAt)
	assert.Equal(suite.T(), models.RequestStatusOpen, resolved.Status)

	assert.Equal(suite.T(), []string{events.BulkRequestCreated, events.OfferSubmitted, events.OfferResolved}, suite.fx.events.Types())
}

func (suite *BulkRequestServiceTestSuite) TestResolveTouchesOnlyTargetOffer() {
	request := suite.openRequest()
	_, err := suite.requests().SubmitOffer(suite.ctx, principalOf(suite.farmer), request.ID.String(), offer(100, 35))
	require.NoError(suite.T(), err)
	withTwo, err := suite.requests().SubmitOffer(suite.ctx, principalOf(suite.fpo), request.ID.String(), offer(900, 36))
	require.NoError(suite.T(), err)

	resolved, err := suite.requests().ResolveOffer(suite.ctx, principalOf(suite.processor), request.ID.String(), withTwo.Offers[1].ID, models.OfferStatusRejected)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.OfferStatusPending, resolved.Offers[0].Status)
	assert.Equal(suite.T(), models.OfferStatusRejected, resolved.Offers[1].Status)
	assert.Len(suite.T(), resolved.Offers, 2, "rejection keeps the offer")
}

func (suite *BulkRequestServiceTestSuite) TestResolveUnknownOfferLeavesOffersUnchanged() {
	request := suite.openRequest()
	_, err := suite.requests().SubmitOffer(suite.ctx, principalOf(suite.farmer), request.ID.String(), offer(100, 35))
	require.NoError(suite.T(), err)

	before, err := suite.requests().Get(suite.ctx, request.ID.String())
	require.NoError(suite.T(), err)

	_, err = suite.requests().ResolveOffer(suite.ctx, principalOf(suite.processor), request.ID.String(), uuid.New(), models.OfferStatusAccepted)
	assert.ErrorIs(suite.T(), err, ErrOfferNotFound)
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	after, err := suite.requests().Get(suite.ctx, request.ID.String())
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), offersJSON(suite.T(), before), offersJSON(suite.T(), after))
	assert.Equal(suite.T(), before.Version, after.Version)
}

func (suite *BulkRequestServiceTestSuite) TestResolveAuthorization() {
	request := suite.openRequest()
	updated, err := suite.requests().SubmitOffer(suite.ctx, principalOf(suite.farmer), request.ID.String(), offer(100, 35))
	require.NoError(suite.T(), err)
	offerID := updated.Offers[0].ID

	_, err = suite.requests().ResolveOffer(suite.ctx, principalOf(suite.rival), request.ID.String(), offerID, models.OfferStatusAccepted)
	assert.ErrorIs(suite.T(), err, ErrNotRequestOwner)
	assert.ErrorIs(suite.T(), err, ErrForbidden)

	_, err = suite.requests().ResolveOffer(suite.ctx, principalOf(suite.processor), uuid.NewString(), offerID, models.OfferStatusAccepted)
	assert.ErrorIs(suite.T(), err, ErrRequestNotFound)

	_, err = suite.requests().ResolveOffer(suite.ctx, principalOf(suite.processor), request.ID.String(), offerID, models.OfferStatusPending)
	assert.ErrorIs(suite.T(), err, ErrInvalidInput)
}

func (suite *BulkRequestServiceTestSuite) TestSubmitOfferRules() {
	request := suite.openRequest()

	_, err := suite.requests().SubmitOffer(suite.ctx, principalOf(suite.consumer), request.ID.String(), offer(1, 30))
	assert.ErrorIs(suite.T(), err, ErrForbidden)

	_, err = suite.requests().SubmitOffer(suite.ctx, principalOf(suite.farmer), uuid.NewString(), offer(1, 30))
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	_, err = suite.requests().SubmitOffer(suite.ctx, principalOf(suite.farmer), request.ID.String(), offer(0, 30))
	assert.ErrorIs(suite.T(), err, ErrInvalidQuantity)

	foreignCrop := testutil.CreateCrop(suite.T(), suite.fx.db, suite.fpo.ID, "ragi", 100, 30)
	withCrop := offer(10, 30)
	withCrop.CropID = &foreignCrop.ID
	_, err = suite.requests().SubmitOffer(suite.ctx, principalOf(suite.farmer), request.ID.String(), withCrop)
	assert.ErrorIs(suite.T(), err, ErrNotItemOwner)

	closed := models.RequestStatusClosed
	_, err = suite.requests().UpdateRequest(suite.ctx, principalOf(suite.processor), request.ID.String(), UpdateBulkRequestRequest{Status: &closed})
	require.NoError(suite.T(), err)

	_, err = suite.requests().SubmitOffer(suite.ctx, principalOf(suite.farmer), request.ID.String(), offer(1, 30))
	assert.ErrorIs(suite.T(), err, ErrRequestNotOpen)

	stored, err := suite.requests().Get(suite.ctx, request.ID.String())
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), stored.Offers, "rejected submissions never append")
}

func (suite *BulkRequestServiceTestSuite) TestConcurrentOffersAreAllKept() {
	request := suite.openRequest()

	const sellers = 50
	farmers := make([]*models.User, sellers)
	for i := range farmers {
		farmers[i] = testutil.CreateUser(suite.T(), suite.fx.db, fmt.Sprintf("Farmer %d", i), models.RoleFarmer)
	}

	var wg sync.WaitGroup
	errs := make(chan error, sellers)
	for _, f := range farmers {
		wg.Add(1)
		go func(f *models.User) {
			defer wg.Done()
			_, err := suite.requests().SubmitOffer(suite.ctx, principalOf(f), request.ID.String(), offer(10, 35))
			errs <- err
		}(f)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(suite.T(), err)
	}

	stored, err := suite.requests().Get(suite.ctx, request.ID.String())
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), stored.Offers, sellers)

	seen := make(map[uuid.UUID]bool)
	for _, o := range stored.Offers {
		seen[o.FarmerID] = true
	}
	assert.Len(suite.T(), seen, sellers)
}

func (suite *BulkRequestServiceTestSuite) TestUpdateRequestPatchesAndRevalidates() {
	request := suite.openRequest()
	owner := principalOf(suite.processor)

	qty := decimal.NewFromInt(7500)
	variety := "GPU-67"
	updated, err := suite.requests().UpdateRequest(suite.ctx, owner, request.ID.String(), UpdateBulkRequestRequest{Quantity: &qty, Variety: &variety})
	require.NoError(suite.T(), err)
	assert.True(suite.T(), qty.Equal(updated.Quantity))
	assert.Equal(suite.T(), "GPU-67", updated.Variety)
	assert.Equal(suite.T(), "ragi", updated.CropType)

	badRange := models.PriceRange{Min: decimal.NewFromInt(60), Max: decimal.NewFromInt(40)}
	_, err = suite.requests().UpdateRequest(suite.ctx, owner, request.ID.String(), UpdateBulkRequestRequest{PriceRange: &badRange})
	assert.ErrorIs(suite.T(), err, ErrInvalidPriceRange)

	unknown := models.RequestStatus("paused")
	_, err = suite.requests().UpdateRequest(suite.ctx, owner, request.ID.String(), UpdateBulkRequestRequest{Status: &unknown})
	assert.ErrorIs(suite.T(), err, ErrInvalidStatus)

	_, err = suite.requests().UpdateRequest(suite.ctx, principalOf(suite.rival), request.ID.String(), UpdateBulkRequestRequest{Variety: &variety})
	assert.ErrorIs(suite.T(), err, ErrForbidden)

	stored, err := suite.requests().Get(suite.ctx, request.ID.String())
	require.NoError(suite.T(), err)
	assert.True(suite.T(), decimal.NewFromInt(42).Equal(stored.PriceRange.Max))
	assert.True(suite.T(), qty.Equal(stored.Quantity))
}

func (suite *BulkRequestServiceTestSuite) TestStatusPolicy() {
	request := suite.openRequest()
	owner := principalOf(suite.processor)
	closed, open := models.RequestStatusClosed, models.RequestStatusOpen

	_, err := suite.requests().UpdateRequest(suite.ctx, owner, request.ID.String(), UpdateBulkRequestRequest{Status: &closed})
	require.NoError(suite.T(), err)
	reopened, err := suite.requests().UpdateRequest(suite.ctx, owner, request.ID.String(), UpdateBulkRequestRequest{Status: &open})
	require.NoError(suite.T(), err, "permissive policy allows any transition")
	assert.Equal(suite.T(), models.RequestStatusOpen, reopened.Status)

	suite.fx = newFixture(suite.T(), TransitionPolicy{Strict: true})
	processor := testutil.CreateUser(suite.T(), suite.fx.db, "Strict Processor", models.RoleProcessor)
	strict, _, err := suite.requests().CreateRequest(suite.ctx, principalOf(processor), demand("kodo"), "")
	require.NoError(suite.T(), err)

	_, err = suite.requests().UpdateRequest(suite.ctx, principalOf(processor), strict.ID.String(), UpdateBulkRequestRequest{Status: &closed})
	require.NoError(suite.T(), err)
	_, err = suite.requests().UpdateRequest(suite.ctx, principalOf(processor), strict.ID.String(), UpdateBulkRequestRequest{Status: &open})
	assert.ErrorIs(suite.T(), err, ErrInvalidTransition)
}

func (suite *BulkRequestServiceTestSuite) TestListOpen() {
	suite.openRequest()
	_, _, err := suite.requests().CreateRequest(suite.ctx, principalOf(suite.rival), demand("foxtail"), "")
	require.NoError(suite.T(), err)
	closedReq := suite.openRequest()
	closed := models.RequestStatusClosed
	_, err = suite.requests().UpdateRequest(suite.ctx, principalOf(suite.processor), closedReq.ID.String(), UpdateBulkRequestRequest{Status: &closed})
	require.NoError(suite.T(), err)

	open, total, err := suite.requests().ListOpen(suite.ctx, BulkRequestFilter{})
	require.NoError(suite.T(), err)
	assert.EqualValues(suite.T(), 2, total)
	assert.Len(suite.T(), open, 2)

	ragi, total, err := suite.requests().ListOpen(suite.ctx, BulkRequestFilter{CropType: "ragi"})
	require.NoError(suite.T(), err)
	assert.EqualValues(suite.T(), 1, total)
	assert.Equal(suite.T(), "ragi", ragi[0].CropType)

	_, total, err = suite.requests().ListOpen(suite.ctx, BulkRequestFilter{Status: models.RequestStatusClosed})
	require.NoError(suite.T(), err)
	assert.EqualValues(suite.T(), 1, total)
}

func (suite *BulkRequestServiceTestSuite) TestConvertAcceptedOfferToOrder() {
	request := suite.openRequest()
	crop := testutil.CreateCrop(suite.T(), suite.fx.db, suite.farmer.ID, "ragi", 1000, 30)
	withCrop := offer(800, 38)
	withCrop.CropID = &crop.ID

	updated, err := suite.requests().SubmitOffer(suite.ctx, principalOf(suite.farmer), request.ID.String(), withCrop)
	require.NoError(suite.T(), err)
	offerID := updated.Offers[0].ID
	owner := principalOf(suite.processor)

	_, _, err = suite.requests().ConvertOfferToOrder(suite.ctx, owner, request.ID.String(), offerID)
	assert.ErrorIs(suite.T(), err, ErrOfferNotAccepted)

	_, err = suite.requests().ResolveOffer(suite.ctx, owner, request.ID.String(), offerID, models.OfferStatusAccepted)
	require.NoError(suite.T(), err)

	_, _, err = suite.requests().ConvertOfferToOrder(suite.ctx, principalOf(suite.rival), request.ID.String(), offerID)
	assert.ErrorIs(suite.T(), err, ErrForbidden)

	order, created, err := suite.requests().ConvertOfferToOrder(suite.ctx, owner, request.ID.String(), offerID)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), created)
	assert.Equal(suite.T(), models.OrderTypeBulk, order.OrderType)
	assert.Equal(suite.T(), suite.processor.ID, order.BuyerID)
	assert.Equal(suite.T(), suite.farmer.ID, order.SellerID)
	assert.True(suite.T(), decimal.NewFromInt(800*38).Equal(order.TotalAmount), "total %s", order.TotalAmount)
	assert.Equal(suite.T(), &offerID, order.SourceOfferID)

	again, created, err := suite.requests().ConvertOfferToOrder(suite.ctx, owner, request.ID.String(), offerID)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), created)
	assert.Equal(suite.T(), order.ID, again.ID)

	var stored models.Crop
	require.NoError(suite.T(), suite.fx.db.First(&stored, "id = ?", crop.ID).Error)
	assert.True(suite.T(), decimal.NewFromInt(200).Equal(stored.Quantity), "crop drawn down once, got %s", stored.Quantity)

	after, err := suite.requests().Get(suite.ctx, request.ID.String())
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.RequestStatusOpen, after.Status)
	require.NotNil(suite.T(), after.Offers[0].OrderID)
	assert.Equal(suite.T(), order.ID, *after.Offers[0].OrderID)

	// the seller sees the order through the order lifecycle
	viaOrders, err := suite.fx.svc.Orders.Get(suite.ctx, principalOf(suite.farmer), order.OrderNumber)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), viaOrders.StatusHistory, 1)
}

func TestBulkRequestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(BulkRequestServiceTestSuite))
}

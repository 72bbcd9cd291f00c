package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"catalog-sync/internal/model"
	"catalog-sync/internal/repository"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockProductService is a mock implementation of ProductService.
type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) List(ctx context.Context, filter repository.Filter) ([]model.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductService) Insert(ctx context.Context, product *model.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductService) Update(ctx context.Context, product *model.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProductService) Import(ctx context.Context, products []model.Product) error {
	args := m.Called(ctx, products)
	return args.Error(0)
}

func TestProductHandler_List(t *testing.T) {
	logger := zerolog.Nop()

	testProducts := []model.Product{
		{Metadata: model.Metadata{ID: "P001"}, Name: "Cola", Price: decimal.RequireFromString("1.50"), CategoryID: "C1"},
		{Metadata: model.Metadata{ID: "P002"}, Name: "Water", Price: decimal.RequireFromString("0.80"), CategoryID: "C1"},
	}

	tests := []struct {
		name           string
		queryParams    string
		filter         repository.Filter
		mockReturn     []model.Product
		mockError      error
		expectedStatus int
		expectService  bool
	}{
		{
			name:           "Success without filter",
			queryParams:    "",
			mockReturn:     testProducts,
			expectedStatus: http.StatusOK,
			expectService:  true,
		},
		{
			name:           "Success with category filter",
			queryParams:    "?categoryId=C1",
			filter:         repository.Filter{Field: "categoryId", Value: "C1"},
			mockReturn:     testProducts,
			expectedStatus: http.StatusOK,
			expectService:  true,
		},
		{
			name:           "Multiple filters rejected",
			queryParams:    "?id=P001&categoryId=C1",
			expectedStatus: http.StatusBadRequest,
			expectService:  false,
		},
		{
			name:           "Unsupported filter field",
			queryParams:    "?stock=3",
			filter:         repository.Filter{Field: "stock", Value: "3"},
			mockError:      model.ErrInvalidFilter,
			expectedStatus: http.StatusBadRequest,
			expectService:  true,
		},
		{
			name:           "Service error",
			queryParams:    "",
			mockError:      errors.New("database error"),
			expectedStatus: http.StatusInternalServerError,
			expectService:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockProductService)
			handler := NewProductHandler(mockService, logger)

			if tt.expectService {
				mockService.On("List", mock.Anything, tt.filter).
					Return(tt.mockReturn, tt.mockError)
			}

			req := httptest.NewRequest(http.MethodGet, "/api/products"+tt.queryParams, nil)
			w := httptest.NewRecorder()

			handler.List(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestProductHandler_Create(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name           string
		body           string
		mockError      error
		expectedStatus int
		expectService  bool
	}{
		{
			name:           "Created",
			body:           `{"id":"P001","name":"Cola","price":"1.50","categoryId":"C1","stock":3}`,
			expectedStatus: http.StatusCreated,
			expectService:  true,
		},
		{
			name:           "Invalid JSON",
			body:           `{"name":`,
			expectedStatus: http.StatusBadRequest,
			expectService:  false,
		},
		{
			name:           "Validation failure",
			body:           `{"name":"","price":"1.00"}`,
			mockError:      model.NewDomainError(model.ErrCodeInvalidInput, "product name is required"),
			expectedStatus: http.StatusBadRequest,
			expectService:  true,
		},
		{
			name:           "Repository failure",
			body:           `{"name":"Cola"}`,
			mockError:      errors.New("connection reset"),
			expectedStatus: http.StatusInternalServerError,
			expectService:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockProductService)
			handler := NewProductHandler(mockService, logger)

			if tt.expectService {
				mockService.On("Insert", mock.Anything, mock.AnythingOfType("*model.Product")).
					Return(tt.mockError)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			handler.Create(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestProductHandler_Update(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name           string
		pathID         string
		body           string
		mockError      error
		expectedStatus int
		expectService  bool
	}{
		{
			name:           "Success",
			pathID:         "P001",
			body:           `{"name":"Cola Zero","price":"1.60"}`,
			expectedStatus: http.StatusOK,
			expectService:  true,
		},
		{
			name:           "Not found",
			pathID:         "P999",
			body:           `{"name":"Ghost"}`,
			mockError:      model.ErrNotFound,
			expectedStatus: http.StatusNotFound,
			expectService:  true,
		},
		{
			name:           "Body ID mismatch",
			pathID:         "P001",
			body:           `{"id":"P002","name":"Cola"}`,
			expectedStatus: http.StatusBadRequest,
			expectService:  false,
		},
		{
			name:           "Missing path ID",
			pathID:         "",
			body:           `{"name":"Cola"}`,
			expectedStatus: http.StatusBadRequest,
			expectService:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockProductService)
			handler := NewProductHandler(mockService, logger)

			if tt.expectService {
				mockService.On("Update", mock.Anything, mock.MatchedBy(func(p *model.Product) bool {
					return p.ID == tt.pathID
				})).Return(tt.mockError)
			}

			req := httptest.NewRequest(http.MethodPut, "/api/products/"+tt.pathID, strings.NewReader(tt.body))
			req.SetPathValue("id", tt.pathID)
			w := httptest.NewRecorder()

			handler.Update(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestProductHandler_Delete(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name           string
		pathID         string
		mockError      error
		expectedStatus int
		expectService  bool
	}{
		{
			name:           "Success",
			pathID:         "P001",
			expectedStatus: http.StatusNoContent,
			expectService:  true,
		},
		{
			name:           "Missing path ID",
			pathID:         "",
			expectedStatus: http.StatusBadRequest,
			expectService:  false,
		},
		{
			name:           "Service error",
			pathID:         "P001",
			mockError:      errors.New("database error"),
			expectedStatus: http.StatusInternalServerError,
			expectService:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockProductService)
			handler := NewProductHandler(mockService, logger)

			if tt.expectService {
				mockService.On("Delete", mock.Anything, tt.pathID).Return(tt.mockError)
			}

			req := httptest.NewRequest(http.MethodDelete, "/api/products/"+tt.pathID, nil)
			req.SetPathValue("id", tt.pathID)
			w := httptest.NewRecorder()

			handler.Delete(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

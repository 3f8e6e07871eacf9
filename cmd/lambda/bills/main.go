package main

import (
	"context"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/sirupsen/logrus"

	"jewellery-billing-api/internal/config"
	"jewellery-billing-api/internal/handlers"
	"jewellery-billing-api/internal/middleware"
	"jewellery-billing-api/pkg/lambda"
)

const billsPath = "/api/v1/bills"

func handler(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	container, err := lambda.GetConnectionManager().GetContainer(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to initialize container")
		return lambda.Error(http.StatusInternalServerError, "Internal server error", "").ToProxyResponse(), nil
	}

	bills := handlers.NewBillHandler(container.BillingService, container.Location, container.Logger)
	resp := dispatch(ctx, bills, container.AuthService, lambda.FromProxyRequest(event))
	return resp.ToProxyResponse(), nil
}

// dispatch authenticates the caller and routes the request to the bill handler
func dispatch(ctx context.Context, bills *handlers.BillHandler, auth *middleware.AuthService, req *lambda.Request) *lambda.Response {
	header := req.Header("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if header == "" || token == header {
		return lambda.Error(http.StatusUnauthorized, "Unauthorized", "Missing bearer token")
	}
	claims, err := auth.ValidateToken(token)
	if err != nil {
		return lambda.Error(http.StatusUnauthorized, "Unauthorized", "Invalid or expired token")
	}
	req.UserID = claims.UserID

	var resp *lambda.Response
	path := strings.TrimSuffix(req.Path, "/")

	switch {
	case req.Method == http.MethodPost && path == billsPath:
		resp, err = bills.HandleCreate(ctx, req)
	case req.Method == http.MethodPost && path == billsPath+"/estimate":
		resp, err = bills.HandleQuote(ctx, req)
	case req.Method == http.MethodGet && path == billsPath:
		resp, err = bills.HandleList(ctx, req)
	case req.Method == http.MethodGet && path == billsPath+"/today-sales":
		resp, err = bills.HandleTodaySales(ctx, req)
	case req.Method == http.MethodGet && strings.HasPrefix(path, billsPath+"/"):
		if req.Param("id") == "" {
			if req.PathParams == nil {
				req.PathParams = map[string]string{}
			}
			req.PathParams["id"] = strings.TrimPrefix(path, billsPath+"/")
		}
		resp, err = bills.HandleGet(ctx, req)
	default:
		return lambda.Error(http.StatusNotFound, "Not found", "")
	}

	if err != nil {
		logrus.WithError(err).WithField("path", req.Path).Error("Lambda handler failed")
		return lambda.Error(http.StatusInternalServerError, "Internal server error", "")
	}
	return resp
}

func main() {
	cfg, err := config.GetOptimizedConfig()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	cm := lambda.GetConnectionManager()
	cm.Initialize(cfg)

	awslambda.StartWithOptions(handler, awslambda.WithEnableSIGTERM(func() {
		if err := cm.Cleanup(); err != nil {
			logrus.WithError(err).Error("Failed to close container on shutdown")
		}
	}))
}

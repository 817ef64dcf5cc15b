package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"testing"

	pkgerrors "github.com/milanbhagat/vastra-backend/pkg/errors"
)

func signPayload(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyPaymentSignature(t *testing.T) {
	secret := "test-secret"
	orderID := "order_abc123"
	paymentID := "pay_xyz789"
	signature := signPayload(secret, orderID, paymentID)

	if !VerifyPaymentSignature(secret, orderID, paymentID, signature) {
		t.Fatal("expected valid signature to verify")
	}
	if VerifyPaymentSignature(secret, orderID, paymentID, signature+"a") {
		t.Fatal("expected tampered signature to fail")
	}
	if VerifyPaymentSignature(secret, "order_other", paymentID, signature) {
		t.Fatal("expected signature for different order to fail")
	}
	if VerifyPaymentSignature("", orderID, paymentID, signature) {
		t.Fatal("expected empty secret to fail closed")
	}
	if VerifyPaymentSignature(secret, orderID, paymentID, "") {
		t.Fatal("expected empty signature to fail closed")
	}
}

func TestDomainCodeForStatus(t *testing.T) {
	tests := []struct {
		status int
		code   pkgerrors.Code
	}{
		{http.StatusUnauthorized, pkgerrors.CodeUnauthorized},
		{http.StatusNotFound, pkgerrors.CodeNotFound},
		{http.StatusConflict, pkgerrors.CodeConflict},
		{http.StatusTooManyRequests, pkgerrors.CodeRateLimit},
		{http.StatusBadRequest, pkgerrors.CodeValidation},
		{http.StatusUnprocessableEntity, pkgerrors.CodeValidation},
		{http.StatusInternalServerError, pkgerrors.CodeDependency},
	}
	for _, tt := range tests {
		if got := domainCodeForStatus(tt.status); got != tt.code {
			t.Fatalf("status %d expected %s got %s", tt.status, tt.code, got)
		}
	}
}

func TestRedact(t *testing.T) {
	c := &Client{}
	if out := c.redact("razorpay_signature", "abc123"); out != "[REDACTED]" {
		t.Fatalf("expected redacted value, got %v", out)
	}
	if v := c.redact("status", "created"); v != "created" {
		t.Fatalf("unexpected redaction for safe key")
	}
}

func TestMapGatewayError(t *testing.T) {
	c := &Client{}
	err := c.mapGatewayError(http.StatusBadRequest, []byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too small"}}`))
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatal("expected typed error")
	}
	if typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %s", typed.Code())
	}
}

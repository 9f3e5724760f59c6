package ports

import (
	"context"
	"time"
)

// Money amounts on gateway wire contracts are integer minor units
// (kopecks); Order/OrderItem persistence uses fixed-point decimals instead
// (see internal/domain/order).

// GatewayStatus is the discriminated status every gateway response carries.
type GatewayStatus string

const (
	GatewayStatusOK      GatewayStatus = "OK"
	GatewayStatusNotOK   GatewayStatus = "NOT_OK"
	GatewayStatusTimeout GatewayStatus = "TIMEOUT"
)

// FiscalGateway produces a legally required fiscal receipt before payment.
// Implementations are pure clients: no retries, no state beyond the network
// call and local logging. The caller (the saga handler) owns retry policy
// and the step deadline via ctx.
type FiscalGateway interface {
	Call(ctx context.Context, req FiscalRequest) (FiscalResponse, error)
}

type FiscalRequest struct {
	OrderID       string
	KioskID       string
	Items         []FiscalRequestItem
	TotalNet      int64 // kopecks
	TotalVAT      int64
	TotalGross    int64
	PaymentMethod string
}

type FiscalRequestItem struct {
	ItemID          string
	ItemDescription string
	ItemPriceNet    int64
	ItemPriceGross  int64
	ItemVATValue    int64
	Quantity        int32
}

type FiscalResponse struct {
	Status        GatewayStatus
	Receipt       *FiscalReceiptPayload
	ErrorCode     string
	ErrorMessage  string
}

type FiscalReceiptPayload struct {
	OFDRegNumber       string
	FiscalDocumentNum  string
	FNNumber           string
	OrderID            string
	IssuedAt           time.Time
	Items              []FiscalRequestItem
	TotalNet           int64
	TotalVAT           int64
	TotalGross         int64
	Message            string
}

// PaymentGateway runs a card payment against a terminal.
type PaymentGateway interface {
	Call(ctx context.Context, req PaymentRequest) (PaymentResponse, error)
}

type PaymentRequest struct {
	KioskID string
	OrderID string
	Sum     int64 // kopecks
}

type PaymentOutcome string

const (
	PaymentSuccess  PaymentOutcome = "SUCCESS"
	PaymentDeclined PaymentOutcome = "DECLINED"
	PaymentError    PaymentOutcome = "ERROR"
	PaymentTimeout  PaymentOutcome = "TIMEOUT"
)

type PaymentResponse struct {
	PaymentID         string
	OrderID           string
	SessionID         string
	Status            PaymentOutcome
	AuthCode          string
	RRN               string
	TransactionID     string
	TerminalID        string
	MerchantID        string
	ResponseCode      string
	ResponseMessage   string
	Amount            int64
	CurrencyCode      string
	PaymentDate       time.Time
	CompletedAt       time.Time
	ReceiptAvailable  bool
	Field90Raw        string
	CustomerReceipt   []byte
	MerchantReceipt   []byte
}

// PrinterGateway prints a customer or merchant receipt.
type PrinterGateway interface {
	Call(ctx context.Context, req PrinterRequest) (PrinterResponse, error)
}

type ReceiptType string

const (
	ReceiptTypeCustomer ReceiptType = "CUSTOMER"
	ReceiptTypeMerchant ReceiptType = "MERCHANT"
)

type PrinterRequest struct {
	OrderID     string
	KioskID     string
	PaymentData []byte
	ReceiptType ReceiptType
}

type PrinterOutcome string

const (
	PrinterSuccess PrinterOutcome = "SUCCESS"
	PrinterFailed  PrinterOutcome = "FAILED"
	PrinterError   PrinterOutcome = "ERROR"
	PrinterTimeout PrinterOutcome = "TIMEOUT"
)

type PrinterResponse struct {
	Status          PrinterOutcome
	ReceiptFilePath string
	ErrorCode       string
	ErrorMessage    string
}

// KDSGateway dispatches the accepted order to the kitchen display system.
type KDSGateway interface {
	Call(ctx context.Context, req KDSRequest) (KDSResponse, error)
}

type KDSRequest struct {
	OrderID string
	KioskID string
	Items   []KDSRequestItem
}

type KDSRequestItem struct {
	ItemID      string
	Description string
	Quantity    int32
}

type KDSResponse struct {
	Status       GatewayStatus
	KDSTicketID  string
	ReceivedAt   time.Time
	ErrorCode    string
	ErrorMessage string
}

package usecase

import (
	"fmt"
	"strings"

	"storefront-support/internal/domain"
)

// Reply sources reported to the chat widget.
const (
	SourceFAQ                     = "faq"
	SourceEscalationConfirm       = "escalation_confirm"
	SourceEscalationConfirmRepeat = "escalation_confirm_repeat"
	SourceEscalationYes           = "escalation_yes"
	SourceEscalationNo            = "escalation_no"
	SourceOrderStatus             = "order_status"
	SourceOrderNotFound           = "order_not_found"
	SourceOrderRequestID          = "order_request_id"
	SourceOrderState              = "order_state"
	SourceRefund                  = "refund"
	SourceGPT                     = "gpt"
	SourceFallback                = "fallback"
	SourceError                   = "error"
)

const (
	ReplyEscalationConfirm = "Do you want me to connect you with an agent?"
	ReplyEscalationRepeat  = "Please reply with yes or no."
	ReplyEscalationYes     = "An agent will connect with you shortly."
	ReplyEscalationNo      = "No problem. I'm here if you need me."
	ReplyAskOrderID        = "Sure! Please provide your order ID."
	ReplyInvalidOrderID    = "Please provide a valid order ID (digits)."
	ReplyOrderNotFound     = "Invalid order ID. Please re-check or escalate."
	ReplyRefundAskOrderID  = "Please provide your order ID to start a refund."
	ReplyRefundNoOrder     = "This order ID doesn't exist. Please re-check or escalate."
	ReplyFallback          = "I couldn't find that. Would you like to talk to an agent?"
	ReplySystemIssue       = "Our systems are facing issues. Please try again later."

	MessageRefundExisting = "Refund has already been initiated."
	MessageRefundCreated  = "Refund request created."
)

// DefaultSystemPrompt is sent to the fallback responder unless configured
// otherwise.
const DefaultSystemPrompt = "You are a helpful and empathetic e-commerce support assistant. " +
	"Answer only from store policies and order data you were given. " +
	"If you are unsure, say: \"" + ReplyFallback + "\" " +
	"Be polite and concise."

func orderStatusReply(o domain.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order %s is currently %s. Expected delivery: %s.", o.OrderID, o.Status, orNA(o.ExpectedDelivery))
	if o.DeliveredOn != "" {
		fmt.Fprintf(&b, " Delivered on: %s.", o.DeliveredOn)
	}
	return b.String()
}

func refundReply(res RefundResult) string {
	if res.Existing {
		return fmt.Sprintf("%s Order %s, status: %s.", MessageRefundExisting, res.Refund.OrderID, res.Refund.Status)
	}
	return fmt.Sprintf("Refund request created for order %s. Status: %s.", res.Refund.OrderID, res.Refund.Status)
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

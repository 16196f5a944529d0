package coinify

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

const invoicesPath = "/v3/invoices"

// InvoiceCreateParams describes a new invoice. Pointer and map fields are
// optional; nil means the key is not sent.
type InvoiceCreateParams struct {
	Amount        float64
	Currency      string
	PluginName    string
	PluginVersion string

	Description   *string
	Custom        map[string]any
	CallbackURL   *string
	CallbackEmail *string
	ReturnURL     *string
	CancelURL     *string
}

// InvoiceUpdateParams holds the mutable fields of an invoice.
type InvoiceUpdateParams struct {
	Description *string
	Custom      map[string]any
}

// Validate checks the required fields.
func (p InvoiceCreateParams) Validate() error {
	var missing []string
	if strings.TrimSpace(p.Currency) == "" {
		missing = append(missing, "currency")
	}
	if strings.TrimSpace(p.PluginName) == "" {
		missing = append(missing, "plugin_name")
	}
	if strings.TrimSpace(p.PluginVersion) == "" {
		missing = append(missing, "plugin_version")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidParams, strings.Join(missing, ", "))
	}
	return nil
}

// Params builds the request body. return_url and cancel_url are always
// present and are null when not supplied.
func (p InvoiceCreateParams) Params() Params {
	params := Params{
		"amount":         p.Amount,
		"currency":       p.Currency,
		"return_url":     optional(p.ReturnURL),
		"cancel_url":     optional(p.CancelURL),
		"plugin_name":    p.PluginName,
		"plugin_version": p.PluginVersion,
	}
	params.setString("description", p.Description)
	params.setAny("custom", p.Custom)
	params.setString("callback_url", p.CallbackURL)
	params.setString("callback_email", p.CallbackEmail)
	return params
}

// Params builds the request body from the supplied fields only.
func (p InvoiceUpdateParams) Params() Params {
	params := Params{}
	params.setString("description", p.Description)
	params.setAny("custom", p.Custom)
	return params
}

func optional(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func invoicePath(id int64) string {
	return invoicesPath + "/" + strconv.FormatInt(id, 10)
}

// InvoicesList returns all invoices of the merchant account.
func (c *Client) InvoicesList(ctx context.Context) (*Response, error) {
	return c.Call(ctx, http.MethodGet, invoicesPath, nil)
}

// InvoiceCreate creates a new invoice.
func (c *Client) InvoiceCreate(ctx context.Context, p InvoiceCreateParams) (*Response, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return c.Call(ctx, http.MethodPost, invoicesPath, p.Params())
}

// InvoiceGet fetches a single invoice.
func (c *Client) InvoiceGet(ctx context.Context, id int64) (*Response, error) {
	return c.Call(ctx, http.MethodGet, invoicePath(id), nil)
}

// InvoiceUpdate changes the description and custom data of an invoice.
func (c *Client) InvoiceUpdate(ctx context.Context, id int64, p InvoiceUpdateParams) (*Response, error) {
	return c.Call(ctx, http.MethodPut, invoicePath(id), p.Params())
}

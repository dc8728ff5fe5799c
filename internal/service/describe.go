package service

import (
	"errors"

	"github.com/mmynk/pantry/internal/catalog"
	"github.com/mmynk/pantry/internal/lookup"
	"github.com/mmynk/pantry/internal/migrate"
	"github.com/mmynk/pantry/internal/syncer"
)

type description struct {
	err            error
	title, message string
}

var descriptions = []description{
	{ErrNoData, "Nothing to export", "There are no products yet."},
	{ErrEmptyImport, "Nothing to import", "Paste exported product data first."},
	{ErrClipboardUnavailable, "Clipboard unavailable", "The exported data could not be written. Try another destination."},
	{ErrSyncNotConfigured, "Sync unavailable", "No sync service is configured."},
	{migrate.ErrParse, "Invalid data", "The text is not valid JSON."},
	{migrate.ErrInvalidFormat, "Invalid format", "The data is not a valid product list. Nothing was changed."},
	{syncer.ErrInvalidOrExpiredCode, "Invalid code", "The code is wrong or has expired. Create a new code on the other device."},
	{syncer.ErrCodeSpaceExhausted, "Sync busy", "No free sync code was found. Try again in a moment."},
	{syncer.ErrNetworkFailure, "Connection problem", "The sync service could not be reached. Check your connection and try again."},
	{lookup.ErrNetworkFailure, "Connection problem", "The product reference list could not be downloaded."},
	{catalog.ErrMinimumReached, "Minimum reached", "Quantity cannot go below 1. Remove the batch instead."},
	{catalog.ErrStaleReference, "Product changed", "That product or batch no longer exists. Nothing was merged."},
	{catalog.ErrBarcodeCollision, "Barcode in use", "Another product already has this barcode."},
	{catalog.ErrNotFound, "Not found", "No product or batch matches."},
	{catalog.ErrInvalidQuantity, "Invalid quantity", "Quantity must be at least 1."},
	{catalog.ErrEmptyBarcode, "Barcode required", "Enter or scan a barcode."},
	{catalog.ErrDuplicateExpiry, "Duplicate date", "Two batches cannot share the same expiry date."},
}

// Describe turns err into a short title and a message fit for the user.
// Unknown errors get a generic title and their own text.
func Describe(err error) (title, message string) {
	if err == nil {
		return "", ""
	}
	for _, d := range descriptions {
		if errors.Is(err, d.err) {
			return d.title, d.message
		}
	}
	return "Something went wrong", err.Error()
}

// Package pricing computes order totals. It is pure: no storage, no clock.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/docupos/api/internal/enum"
)

// FineSurchargeCents is the fixed administrative surcharge added for every
// selected fine except the lost-report fine.
const FineSurchargeCents int64 = 1000

// FineCharge is one selected fine as priced at order time.
type FineCharge struct {
	Code         string
	AmountCents  int64
	IsLostReport bool
}

// Promo is an already-validated discount to apply.
type Promo struct {
	Type        enum.PromoType
	Value       int64
	MaxDiscount *int64
}

// Breakdown is the priced order. All fields are integer minor units and
// Total = BaseAmount + DeliveryFee + OtherFees + FineAmount + FineSurcharge - Discount.
type Breakdown struct {
	BaseAmount    int64
	DeliveryFee   int64
	OtherFees     int64
	FineAmount    int64
	FineSurcharge int64
	Discount      int64
	Total         int64
}

// Quote prices an order. The lost-report fine contributes its amount to the
// other-fees bucket and carries no surcharge; every other fine contributes its
// amount to the fine bucket plus FineSurchargeCents. The promo discount is
// computed on the pre-discount total and capped so the total never goes
// negative.
func Quote(priceCents int64, quantity int32, deliveryFee, otherFees int64, fines []FineCharge, promo *Promo) Breakdown {
	b := Breakdown{
		BaseAmount:  priceCents * int64(quantity),
		DeliveryFee: deliveryFee,
		OtherFees:   otherFees,
	}

	for _, f := range fines {
		if f.IsLostReport {
			b.OtherFees += f.AmountCents
			continue
		}
		b.FineAmount += f.AmountCents
		b.FineSurcharge += FineSurchargeCents
	}

	gross := b.BaseAmount + b.DeliveryFee + b.OtherFees + b.FineAmount + b.FineSurcharge
	if promo != nil {
		b.Discount = Discount(promo, gross)
	}
	b.Total = gross - b.Discount

	return b
}

// Discount computes the promo discount against a pre-discount total. FIXED
// subtracts the value; PERCENTAGE subtracts round(total*value/100) capped at
// MaxDiscount when set. The result never exceeds the total itself.
func Discount(promo *Promo, totalCents int64) int64 {
	var discount int64
	switch promo.Type {
	case enum.PromoTypePercentage:
		discount = decimal.NewFromInt(totalCents).
			Mul(decimal.NewFromInt(promo.Value)).
			Div(decimal.NewFromInt(100)).
			Round(0).
			IntPart()
		if promo.MaxDiscount != nil && discount > *promo.MaxDiscount {
			discount = *promo.MaxDiscount
		}
	default:
		discount = promo.Value
	}

	if discount > totalCents {
		discount = totalCents
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}

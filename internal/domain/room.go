package domain

import "time"

// Room is the slice of the room catalogue the engine needs: identity, tier
// and pricing. Room CRUD lives elsewhere.
type Room struct {
	ID         string
	Name       string
	Tier       int
	HourlyRate int64
	ShiftRate  int64
}

// ShiftDuration is the fixed block funded by SHIFT-type credits and priced
// with the shift rate.
const ShiftDuration = 4 * time.Hour

// Pricing is the financial breakdown of a booking in minor currency units.
// Net = Gross - Discount and Credit + Cash = Net.
type Pricing struct {
	Gross    int64
	Discount int64
	Net      int64
	Credit   int64
	Cash     int64
}

// PriceInterval computes the gross price for an interval on a room. A fixed
// shift block gets the shift rate, anything else is billed by the hour,
// rounded up to whole hours.
func (r *Room) PriceInterval(start, end time.Time) int64 {
	d := end.Sub(start)
	if d == ShiftDuration {
		return r.ShiftRate
	}
	hours := int64(d / time.Hour)
	if d%time.Hour != 0 {
		hours++
	}
	return r.HourlyRate * hours
}

// ComputePricing applies a coupon discount and the available credit balance
// to a gross amount. The cash remainder is what must go to the gateway.
func ComputePricing(gross, discount, availableCredit int64) Pricing {
	if discount > gross {
		discount = gross
	}
	net := gross - discount
	credit := availableCredit
	if credit > net {
		credit = net
	}
	return Pricing{
		Gross:    gross,
		Discount: discount,
		Net:      net,
		Credit:   credit,
		Cash:     net - credit,
	}
}

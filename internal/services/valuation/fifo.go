package valuation

import "errors"

// ErrFIFOUnderflow is returned when a sell tries to close more than is
// currently open. It signals corrupt or incomplete deal history and is
// never recovered by clamping.
var ErrFIFOUnderflow = errors.New("fifo underflow: selling more than open position")

// lot is an open position slice with its own open price.
type lot struct {
	quantity float64
	price    float64
}

// lotQueue is the FIFO queue of open lots for one instrument. Positions
// are closed oldest-first. The queue is local to one valuation and never
// shared.
type lotQueue struct {
	lots []lot
}

func (q *lotQueue) push(quantity, price float64) {
	q.lots = append(q.lots, lot{quantity: quantity, price: price})
}

func (q *lotQueue) front() (lot, bool) {
	if len(q.lots) == 0 {
		return lot{}, false
	}
	return q.lots[0], true
}

func (q *lotQueue) popFront() {
	q.lots = q.lots[1:]
}

func (q *lotQueue) reduceFront(quantity float64) {
	q.lots[0].quantity -= quantity
}

// openQuantity is the total quantity still open across all lots.
func (q *lotQueue) openQuantity() float64 {
	var total float64
	for _, l := range q.lots {
		total += l.quantity
	}
	return total
}

// avgOpenPrice is the volume-weighted price of exactly the lots still
// open, not of total historical buys.
func (q *lotQueue) avgOpenPrice() (float64, bool) {
	var quantity, volume float64
	for _, l := range q.lots {
		quantity += l.quantity
		volume += l.price * l.quantity
	}
	if quantity == 0 {
		return 0, false
	}
	return volume / quantity, true
}

package booking

import (
	"github.com/CarRentChain/CarRentChain/internal/company"
	"github.com/CarRentChain/CarRentChain/internal/ledger"
)

// Status 车辆租用状态。Available ↔ Booked 循环流转；
// 所有权转移只能从 Booked 分支出去，不改变租用状态本身。
type Status string

const (
	StatusAvailable Status = "available"
	StatusBooked    Status = "booked"
)

// AllowTransition 定义车辆状态机的允许流转关系。
var AllowTransition = map[Status][]Status{
	StatusAvailable: {StatusBooked},
	StatusBooked:    {StatusAvailable},
}

// CanTransition 判断 from -> to 是否是允许的流转。
func CanTransition(from, to Status) bool {
	allowed, ok := AllowTransition[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// StatusOf 读出车辆当前状态。
func StatusOf(car *company.Car) Status {
	if car.Available {
		return StatusAvailable
	}
	return StatusBooked
}

// Apply 对车辆应用状态流转，同时维护 Available/Renter 的配对不变式：
// Available == false 当且仅当 Renter 非零。
func Apply(car *company.Car, to Status, renter ledger.Address) error {
	const op = "booking.Apply"
	if car == nil {
		return ledger.Errf(ledger.KindInvalidReference, op, "car is nil")
	}
	from := StatusOf(car)
	if !CanTransition(from, to) {
		return ledger.Errf(ledger.KindInvalidState, op, "car %s: %s -> %s not allowed", car.ID, from, to)
	}

	switch to {
	case StatusBooked:
		if renter.IsZero() {
			return ledger.Errf(ledger.KindInvalidReference, op, "booked state requires a renter")
		}
		car.Available = false
		car.Renter = string(renter)
	case StatusAvailable:
		car.Available = true
		car.Renter = string(ledger.ZeroAddress)
	default:
		return ledger.Errf(ledger.KindInvalidState, op, "unknown status %s", to)
	}
	return nil
}

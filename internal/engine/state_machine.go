package engine

import "advisor/internal/models"

// ValidTransitions определяет допустимые переходы статуса позиции
// Все закрытые статусы терминальны: повторное открытие запрещено
var ValidTransitions = map[string][]string{
	models.StatusOpen: {
		models.StatusClosedStop,
		models.StatusClosedTake,
		models.StatusClosedManual,
	},
	models.StatusClosedStop:   {},
	models.StatusClosedTake:   {},
	models.StatusClosedManual: {},
}

// CanTransition проверяет допустимость перехода
func CanTransition(from, to string) bool {
	allowed, ok := ValidTransitions[from]
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

// IsTerminal возвращает true для закрытых статусов
func IsTerminal(status string) bool {
	return status == models.StatusClosedStop ||
		status == models.StatusClosedTake ||
		status == models.StatusClosedManual
}

// evaluateTrigger определяет пересечение уровней для открытой позиции
// Возвращает целевой статус и true, если цена пересекла stop или take
//
// Для BUY: цена <= stop_loss -> closed_stop; цена >= take_profit -> closed_take
// Для SELL зеркально
func evaluateTrigger(pos *models.Position, price float64) (string, bool) {
	switch pos.Action {
	case models.ActionBuy:
		if price <= pos.Levels.StopLossPrice {
			return models.StatusClosedStop, true
		}
		if price >= pos.Levels.TakeProfitPrice {
			return models.StatusClosedTake, true
		}
	case models.ActionSell:
		if price >= pos.Levels.StopLossPrice {
			return models.StatusClosedStop, true
		}
		if price <= pos.Levels.TakeProfitPrice {
			return models.StatusClosedTake, true
		}
	}
	return pos.Status, false
}

// StatusInfo возвращает описание статуса для UI
func StatusInfo(status string) string {
	switch status {
	case models.StatusOpen:
		return "Позиция открыта, отслеживается"
	case models.StatusClosedStop:
		return "Закрыта по стоп-лоссу"
	case models.StatusClosedTake:
		return "Закрыта по тейк-профиту"
	case models.StatusClosedManual:
		return "Закрыта вручную"
	default:
		return "Неизвестный статус"
	}
}

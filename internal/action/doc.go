// Package action schedules the automated actions of alarm tree items.
//
// A single Timer is shared by every item. Each enabled item with actions
// owns an Actions controller, held in a Slot that replaces the controller
// when the item is reconfigured. Timer callbacks hand actions to a
// Dispatcher, normally an Executor.
package action

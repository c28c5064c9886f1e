package alarm

import "strconv"

// TitleDetail is a guidance, display or command entry of a tree item.
type TitleDetail struct {
	Title  string `yaml:"title"`
	Detail string `yaml:"details"`
}

// TitleDetailDelay configures an automated action.
//
// Detail selects the effect by prefix ("mailto:", "cmd:", "infopv:"),
// Delay is the number of seconds the item must stay in alarm before the
// action fires. The struct is comparable and used as a map key.
type TitleDetailDelay struct {
	Title  string `yaml:"title"`
	Detail string `yaml:"details"`
	Delay  int    `yaml:"delay"`
}

// String renders the action for logs.
func (t TitleDetailDelay) String() string {
	return "'" + t.Title + "' (" + t.Detail + ", " + strconv.Itoa(t.Delay) + " sec)"
}

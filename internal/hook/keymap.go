package hook

import "fmt"

// Linux input-event-codes.h 中的按键码
const (
	keyLeftShift  = 42
	keyRightShift = 54
	keyCapsLock   = 58
	btnMisc       = 0x100
)

type printable struct {
	normal, shifted string
}

var printableKeys = map[int]printable{
	2: {"1", "!"}, 3: {"2", "@"}, 4: {"3", "#"}, 5: {"4", "$"}, 6: {"5", "%"},
	7: {"6", "^"}, 8: {"7", "&"}, 9: {"8", "*"}, 10: {"9", "("}, 11: {"0", ")"},
	12: {"-", "_"}, 13: {"=", "+"},
	16: {"q", "Q"}, 17: {"w", "W"}, 18: {"e", "E"}, 19: {"r", "R"}, 20: {"t", "T"},
	21: {"y", "Y"}, 22: {"u", "U"}, 23: {"i", "I"}, 24: {"o", "O"}, 25: {"p", "P"},
	26: {"[", "{"}, 27: {"]", "}"},
	30: {"a", "A"}, 31: {"s", "S"}, 32: {"d", "D"}, 33: {"f", "F"}, 34: {"g", "G"},
	35: {"h", "H"}, 36: {"j", "J"}, 37: {"k", "K"}, 38: {"l", "L"},
	39: {";", ":"}, 40: {"'", `"`}, 41: {"`", "~"}, 43: {`\`, "|"},
	44: {"z", "Z"}, 45: {"x", "X"}, 46: {"c", "C"}, 47: {"v", "V"}, 48: {"b", "B"},
	49: {"n", "N"}, 50: {"m", "M"},
	51: {",", "<"}, 52: {".", ">"}, 53: {"/", "?"},
	55: {"*", "*"},
}

var specialKeys = map[int]string{
	1: "esc", 14: "backspace", 15: "tab", 28: "enter", 29: "ctrl_l",
	keyLeftShift: "shift", keyRightShift: "shift_r", 56: "alt_l", 57: "space", keyCapsLock: "caps_lock",
	59: "f1", 60: "f2", 61: "f3", 62: "f4", 63: "f5", 64: "f6", 65: "f7", 66: "f8", 67: "f9", 68: "f10",
	87: "f11", 88: "f12", 96: "enter", 97: "ctrl_r", 99: "print_screen", 100: "alt_r",
	102: "home", 103: "up", 104: "page_up", 105: "left", 106: "right", 107: "end",
	108: "down", 109: "page_down", 110: "insert", 111: "delete", 119: "pause",
	125: "cmd", 126: "cmd_r", 127: "menu",
}

func isLetter(code int) bool {
	p, ok := printableKeys[code]
	return ok && len(p.normal) == 1 && p.normal[0] >= 'a' && p.normal[0] <= 'z'
}

// KeySymbol 按键码转符号。caps 只影响字母
func KeySymbol(code int, shift, caps bool) string {
	if p, ok := printableKeys[code]; ok {
		upper := shift
		if isLetter(code) && caps {
			upper = !upper
		}
		if upper {
			return p.shifted
		}
		return p.normal
	}
	if name, ok := specialKeys[code]; ok {
		return "Key." + name
	}
	return fmt.Sprintf("<%d>", code)
}

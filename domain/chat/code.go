package chat

import (
	"fmt"
	"strings"
)

type Language string

const (
	JavaScript Language = "javascript"
	Python     Language = "python"
	Cpp        Language = "cpp"
	Java       Language = "java"
)

var languageLabels = map[Language]string{
	JavaScript: "JavaScript",
	Python:     "Python",
	Cpp:        "Cpp",
	Java:       "Java",
}

var defaultCode = map[Language]string{
	JavaScript: `console.log("Hello, world!");`,
	Python:     `print("Hello, world!")`,
	Cpp:        "#include <iostream>\n\nint main() {\n  std::cout << \"Hello, world!\" << std::endl;\n  return 0;\n}",
	Java:       "public class Main {\n  public static void main(String[] args) {\n    System.out.println(\"Hello, world!\");\n  }\n}",
}

func Languages() []Language {
	return []Language{JavaScript, Python, Cpp, Java}
}

func (l Language) Supported() bool {
	_, ok := languageLabels[l]
	return ok
}

func (l Language) Label() string {
	return languageLabels[l]
}

// DefaultCode returns the snippet an editor starts with for the language.
func (l Language) DefaultCode() string {
	return defaultCode[l]
}

// CodeRun is the outcome of a simulated execution. Nothing is interpreted:
// the output is canned per language and echoes the provided input.
type CodeRun struct {
	Room     RoomID
	UserID   string
	Language Language
	Output   string
}

func SimulatedOutput(language Language, input string) string {
	output := fmt.Sprintf("%s Output:\nHello, world!", language.Label())
	if strings.TrimSpace(input) != "" {
		output += "\n\nInput received: " + input
	}
	return output
}

// CodeJob is a queued run. Reply receives exactly one CodeRun and must be buffered.
type CodeJob struct {
	Command RunCodeCommand
	Reply   chan CodeRun
}

func NewCodeJob(cmd RunCodeCommand) CodeJob {
	return CodeJob{Command: cmd, Reply: make(chan CodeRun, 1)}
}

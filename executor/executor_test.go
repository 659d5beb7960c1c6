package executor

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minilang/compiler"
)

func run(t *testing.T, src, stdin string) (interface{}, string) {
	t.Helper()
	res := compiler.New().Compile(src)
	require.False(t, res.Bus.HasErrors())
	require.NotNil(t, res.Module)

	var out bytes.Buffer
	m := NewWithIO(res.Module, strings.NewReader(stdin), &out)
	val, err := m.RunMain()
	require.NoError(t, err)
	return val, out.String()
}

func TestRunArithmeticMain(t *testing.T) {
	val, _ := run(t, `
		fn int add(a: int, b: int) {
			return a + b;
		}
		fn int main() {
			return add(2, 3);
		}
	`, "")
	assert.Equal(t, int64(5), val)
}

func TestRunWhileLoopAccumulates(t *testing.T) {
	val, _ := run(t, `
		fn int main() {
			var i: int = 0;
			var sum: int = 0;
			while (i < 5) {
				sum += i;
				i += 1;
			}
			return sum;
		}
	`, "")
	assert.Equal(t, int64(10), val)
}

func TestRunIfElse(t *testing.T) {
	val, _ := run(t, `
		fn int classify(x: int) {
			if (x > 0) {
				return 1;
			} else {
				return -1;
			}
		}
		fn int main() {
			return classify(-5);
		}
	`, "")
	assert.Equal(t, int64(-1), val)
}

func TestRunPrintWritesToStdout(t *testing.T) {
	_, out := run(t, `
		fn int main() {
			print("hello\n");
			return 0;
		}
	`, "")
	assert.Equal(t, "hello\n", out)
}

func TestRunMallocAndArrayIndex(t *testing.T) {
	val, _ := run(t, `
		fn int main() {
			var buf: int[] = malloc(3);
			buf[0] = 42;
			return buf[0];
		}
	`, "")
	assert.Equal(t, int64(42), val)
}

func TestRunArrayOutOfBoundsErrors(t *testing.T) {
	res := compiler.New().Compile(`
		fn int main() {
			var buf: int[] = malloc(1);
			return buf[5];
		}
	`)
	require.False(t, res.Bus.HasErrors())
	m := New(res.Module)
	_, err := m.RunMain()
	assert.Error(t, err)
}

func TestRunShortCircuitAndSkipsRightSideEffects(t *testing.T) {
	val, _ := run(t, `
		fn bool shortCircuit() {
			return false && (1 / 0 > 0);
		}
		fn int main() {
			if (shortCircuit()) {
				return 1;
			}
			return 0;
		}
	`, "")
	assert.Equal(t, int64(0), val)
}

func TestRunStringConcatenation(t *testing.T) {
	_, out := run(t, `
		fn int main() {
			var s: str = "foo" + "bar";
			print(s);
			return 0;
		}
	`, "")
	assert.Equal(t, "foobar", out)
}

func TestRunInputReadsStdin(t *testing.T) {
	_, out := run(t, `
		fn int main() {
			var s: str = input();
			print(s);
			return 0;
		}
	`, "hi there\n")
	assert.Equal(t, "hi there", out)
}

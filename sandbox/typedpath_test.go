package sandbox

import (
	"errors"
	"testing"
)

func Test_Exec_AllowsAbsolutePath(t *testing.T) {
	t.Parallel()

	a := Exec("/usr/bin/gcc")

	if a.String() != "/usr/bin/gcc" {
		t.Fatalf("String() = %q, want /usr/bin/gcc", a.String())
	}

	if a.BoxedPath() != a.UnboxedPath() {
		t.Fatalf("Exec boxed/unboxed paths diverge: %q vs %q", a.BoxedPath(), a.UnboxedPath())
	}
}

func Test_Input_RejectsAbsolutePath(t *testing.T) {
	t.Parallel()

	_, err := InputChecked("/etc/passwd")
	if !errors.Is(err, ErrAbsolutePath) {
		t.Fatalf("InputChecked(absolute) err = %v, want ErrAbsolutePath", err)
	}
}

func Test_Input_PanicsOnAbsolutePath(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatal("Input(absolute) did not panic")
		}
	}()

	Input("/etc/passwd")
}

func Test_InputFrom_OverridesUnboxedPath(t *testing.T) {
	t.Parallel()

	a := InputFrom("src/main.c", "/tmp/elsewhere/main.c")

	if a.BoxedPath() != "src/main.c" {
		t.Fatalf("BoxedPath() = %q, want src/main.c", a.BoxedPath())
	}

	if a.UnboxedPath() != "/tmp/elsewhere/main.c" {
		t.Fatalf("UnboxedPath() = %q, want /tmp/elsewhere/main.c", a.UnboxedPath())
	}
}

func Test_Input_DefaultsUnboxedToBoxed(t *testing.T) {
	t.Parallel()

	a := Input("src/main.c")

	if a.UnboxedPath() != "src/main.c" {
		t.Fatalf("UnboxedPath() = %q, want src/main.c", a.UnboxedPath())
	}
}

func Test_Literal_HasNoPaths(t *testing.T) {
	t.Parallel()

	a := Literal("-O2")

	if a.String() != "-O2" {
		t.Fatalf("String() = %q, want -O2", a.String())
	}

	if a.BoxedPath() != "" || a.UnboxedPath() != "" {
		t.Fatalf("Literal paths not empty: boxed=%q unboxed=%q", a.BoxedPath(), a.UnboxedPath())
	}
}

func Test_argString_PrefixesOutputsAndTempButNotInputsOrLiterals(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		arg  TypedArg
		want string
	}{
		{"exec", Exec("gcc"), "gcc"},
		{"input", Input("main.c"), "main.c"},
		{"output", Output("out.o"), "../out/out.o"},
		{"temp_file", TempFile("scratch.tmp"), "../temp/scratch.tmp"},
		{"temp_dir", TempDir("workdir"), "../temp/workdir"},
		{"literal", Literal("-O2"), "-O2"},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := argString(tc.arg); got != tc.want {
				t.Fatalf("argString(%s) = %q, want %q", tc.name, got, tc.want)
			}
		})
	}
}

func Test_isInput_isOutput_isTempDir_Classify(t *testing.T) {
	t.Parallel()

	if !isInput(Input("a")) {
		t.Fatal("Input not classified as input")
	}

	if !isOutput(Output("a")) {
		t.Fatal("Output not classified as output")
	}

	if !isTempDir(TempDir("a")) {
		t.Fatal("TempDir not classified as temp dir")
	}

	if isInput(Output("a")) || isOutput(Input("a")) || isTempDir(TempFile("a")) {
		t.Fatal("cross-classification leaked")
	}
}

func Test_isExecOrInput_OnlyExecAndInput(t *testing.T) {
	t.Parallel()

	if !isExecOrInput(Exec("gcc")) || !isExecOrInput(Input("a")) {
		t.Fatal("Exec/Input should be classified as file-contributing")
	}

	if isExecOrInput(Output("a")) || isExecOrInput(TempFile("a")) || isExecOrInput(Literal("a")) {
		t.Fatal("Output/TempFile/Literal should not be classified as file-contributing")
	}
}

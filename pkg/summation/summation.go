// Package summation computes 1 + 2 + ... + n three different ways.
//
// Every variant returns n(n+1)/2 for n >= 0 and 0 for n <= 0. Results wrap
// around on int overflow like any other Go integer arithmetic.
package summation

// SumToNLoop adds the integers one at a time.
func SumToNLoop(n int) int {
	sum := 0
	for i := 1; i <= n; i++ {
		sum += i
	}
	return sum
}

// SumToNFormula uses the closed form n(n+1)/2.
func SumToNFormula(n int) int {
	if n <= 0 {
		return 0
	}
	// Halve the even factor first so the product overflows no earlier than the result.
	if n%2 == 0 {
		return (n / 2) * (n + 1)
	}
	return n * ((n + 1) / 2)
}

// SumToNRange materializes the sequence 1..n and folds it.
func SumToNRange(n int) int {
	if n <= 0 {
		return 0
	}
	nums := make([]int, n)
	for i := range nums {
		nums[i] = i + 1
	}
	return reduce(nums, 0, func(acc, v int) int { return acc + v })
}

func reduce(values []int, initial int, fn func(acc, v int) int) int {
	acc := initial
	for _, v := range values {
		acc = fn(acc, v)
	}
	return acc
}

// Variant is a named summation strategy.
type Variant struct {
	Name string
	Func func(int) int
}

// Variants lists every strategy in a stable order.
func Variants() []Variant {
	return []Variant{
		{Name: "loop", Func: SumToNLoop},
		{Name: "formula", Func: SumToNFormula},
		{Name: "range", Func: SumToNRange},
	}
}

// Lookup returns the variant registered under name.
func Lookup(name string) (Variant, bool) {
	for _, v := range Variants() {
		if v.Name == name {
			return v, true
		}
	}
	return Variant{}, false
}

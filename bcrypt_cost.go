//go:build !race

package sessionauth

func secretHashCost() int {
	return 14
}

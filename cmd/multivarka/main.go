package main

import (
	"fmt"
	"os"

	"github.com/Victoria-Vladimirova/webdev-tasks-2/pkg/multivarka"

	// drivers register their schemes in init()
	_ "github.com/Victoria-Vladimirova/webdev-tasks-2/pkg/multivarka/driver/memdriver"
	_ "github.com/Victoria-Vladimirova/webdev-tasks-2/pkg/multivarka/driver/mongodriver"
	_ "github.com/Victoria-Vladimirova/webdev-tasks-2/pkg/multivarka/driver/pgdriver"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprint(os.Stderr, multivarka.FormatError(err))
		os.Exit(1)
	}
}

package gometapath_test

import (
	"context"
	"fmt"
	"log"

	"github.com/sandrolain/gometapath"
	"github.com/sandrolain/gometapath/pkg/item"
)

func ExampleEval() {
	doc, err := gometapath.LoadDocument("testdata/catalog.xml")
	if err != nil {
		log.Fatal(err)
	}
	result, err := gometapath.Eval("//control/@id ! string()", doc)
	if err != nil {
		log.Fatal(err)
	}
	for it := range result.All() {
		fmt.Println(it.(item.AtomicItem).StringValue())
	}
	// Output:
	// ac-1
	// ac-2
	// au-1
}

func ExampleEvalAs() {
	doc, err := gometapath.LoadDocument("testdata/catalog.json")
	if err != nil {
		log.Fatal(err)
	}
	title, err := gometapath.EvalAs(context.Background(), "/catalog/group[id = 'au']/title", doc, gometapath.ResultString)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(title)
	// Output: Audit
}

func ExampleCompile() {
	expr := gometapath.MustCompile("1 + 2 * 3")
	fmt.Print(expr.Tree())
	// Output:
	// Arithmetic[+] as xs:integer
	//   Literal[1] as xs:integer
	//   Arithmetic[*] as xs:integer
	//     Literal[2] as xs:integer
	//     Literal[3] as xs:integer
}

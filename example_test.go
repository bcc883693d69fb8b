package seltree_test

import (
	"fmt"
	"log"

	"github.com/aretw0/seltree"
	"github.com/aretw0/seltree/pkg/adapters/memory"
	"github.com/aretw0/seltree/pkg/dsl"
)

// ExampleNew_memory loads a definition held in memory instead of a folder.
func ExampleNew_memory() {
	loader := memory.NewLoader(map[string]string{
		"guard.xml": `<SelectionTree name="Guard" type="Human">
  <Variables><Variable name="EnemySeen" default="0"/></Variables>
  <SignalVariables><Signal name="OnEnemySeen" variable="EnemySeen"/></SignalVariables>
  <Priority name="Root">
    <Leaf name="Attack" condition="EnemySeen"/>
    <Sequence name="Patrol" condition="!EnemySeen">
      <Leaf name="GoNorth"/>
      <Leaf name="GoSouth"/>
    </Sequence>
  </Priority>
</SelectionTree>`,
	})

	// path only names the engine when a loader is given.
	eng, err := seltree.New("", seltree.WithLoader(loader))
	if err != nil {
		log.Fatal(err)
	}

	guard, err := eng.NewAgent("guard-1", "Guard")
	if err != nil {
		log.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		guard.Tick()
		fmt.Println(guard.Behavior())
	}
	guard.Signal("OnEnemySeen")
	guard.Tick()
	fmt.Println(guard.Behavior())

	// Output:
	// GoNorth
	// GoSouth
	// GoNorth
	// Attack
}

// ExampleNew_library builds the definition in Go with the dsl package.
func ExampleNew_library() {
	def := dsl.New("Cat").
		Type("Animal").
		Variable("Hungry", false).
		Signal("OnFoodSmell", "Hungry", "").
		Translate("Root:Eat", "cat_eat").
		Root(dsl.Priority("Root",
			dsl.Leaf("Eat").When("Hungry"),
			dsl.Leaf("Sleep").When("!Hungry"),
		))

	data, err := def.XML()
	if err != nil {
		log.Fatal(err)
	}
	loader := memory.NewLoader(map[string]string{"cat.xml": string(data)})
	eng, err := seltree.New("cats", seltree.WithLoader(loader))
	if err != nil {
		log.Fatal(err)
	}

	cat, _ := eng.NewAgent("tom", "Cat")
	cat.Tick()
	fmt.Println(cat.Behavior())
	cat.Signal("OnFoodSmell")
	cat.Tick()
	fmt.Println(cat.Behavior())
	fmt.Println(eng.LookupByTypeTag("Animal"))

	// Output:
	// Sleep
	// cat_eat
	// [Cat]
}

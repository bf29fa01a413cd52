package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/jinford/ragkit/internal/core/store"
)

// NamespaceListAction は名前空間の一覧を表示するアクション
func NamespaceListAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	lister, ok := appCtx.Container.Store.(store.NamespaceLister)
	if !ok {
		return fmt.Errorf("このストアは名前空間一覧に対応していません")
	}

	infos, err := lister.Namespaces(ctx)
	if err != nil {
		return err
	}

	current := ""
	if switcher, ok := appCtx.Container.Store.(store.NamespaceSwitcher); ok {
		current = switcher.CurrentNamespace()
	}

	for _, info := range infos {
		marker := "  "
		if info.Name == current {
			marker = "* "
		}
		fmt.Printf("%s%s (%d chunks)\n", marker, info.Name, info.Count)
	}
	return nil
}

// NamespaceShowAction は現在の名前空間とチャンク数を表示するアクション
func NamespaceShowAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	count, err := appCtx.Container.Store.Count(ctx)
	if err != nil {
		return err
	}

	name := ""
	if switcher, ok := appCtx.Container.Store.(store.NamespaceSwitcher); ok {
		name = switcher.CurrentNamespace()
	}

	fmt.Printf("namespace: %s\n", name)
	fmt.Printf("signature: %s\n", appCtx.Container.Signature)
	fmt.Printf("chunks:    %d\n", count)
	return nil
}

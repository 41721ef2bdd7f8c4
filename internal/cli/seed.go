package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MyNameIsWhaaat/commentthread/internal/comment/model"
	"github.com/MyNameIsWhaaat/commentthread/internal/comment/service"
	"github.com/MyNameIsWhaaat/commentthread/internal/comment/storage"
)

func init() {
	rootCmd.AddCommand(seedCmd)
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo articles, authors and a small thread",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		a, err := newApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.close(context.WithoutCancel(ctx))

		n, err := seed(ctx, a.backend.Seeder, a.svc)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d comments\n", n)
		return nil
	},
}

var (
	demoArticles = []model.Article{
		{ID: "welcome", Title: "Welcome to the blog"},
		{ID: "threads", Title: "How nested comments work"},
	}
	demoAuthors = []model.Author{
		{ID: "ann", Username: "ann", Name: "Ann Lee", Avatar: "/avatars/ann.png"},
		{ID: "bob", Username: "bob", Name: "Bob Marsh", Avatar: "/avatars/bob.png"},
		{ID: "cat", Username: "cat", Name: "Cat Diaz", Avatar: "/avatars/cat.png"},
	}
)

// seed writes the demo data and builds a short thread on the first article.
// It returns the number of comments created.
func seed(ctx context.Context, s storage.Seeder, svc service.CommentService) (int, error) {
	for _, a := range demoArticles {
		if err := s.PutArticle(ctx, a); err != nil {
			return 0, fmt.Errorf("seed article %s: %w", a.ID, err)
		}
	}
	for _, a := range demoAuthors {
		if err := s.PutAuthor(ctx, a); err != nil {
			return 0, fmt.Errorf("seed author %s: %w", a.ID, err)
		}
	}

	article := demoArticles[0].ID
	root, err := svc.Create(ctx, service.CreateInput{ArticleID: article, AuthorID: "ann", Content: "nice post"})
	if err != nil {
		return 0, err
	}
	reply, err := svc.Create(ctx, service.CreateInput{ArticleID: article, AuthorID: "bob", ParentID: root.ID, Content: "thanks!"})
	if err != nil {
		return 1, err
	}
	if _, err := svc.Create(ctx, service.CreateInput{ArticleID: article, AuthorID: "cat", ParentID: reply.ID, Content: "agreed, great read"}); err != nil {
		return 2, err
	}
	if _, err := svc.Create(ctx, service.CreateInput{ArticleID: article, AuthorID: "cat", Content: "first time here"}); err != nil {
		return 3, err
	}
	return 4, nil
}

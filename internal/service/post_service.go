package service

import (
	"context"

	"goodthings/internal/models"
	"goodthings/internal/repository"
)

type PostService interface {
	ListPosts(ctx context.Context, authorID string) ([]models.Post, error)
	CreatePost(ctx context.Context, authorID string, draft models.PostDraft) (*models.Post, error)
	UpdatePost(ctx context.Context, authorID, postID string, draft models.PostDraft) (*models.Post, error)
	DeletePost(ctx context.Context, authorID, postID string) error
}

type postService struct {
	postRepo repository.PostRepository
}

func NewPostService(postRepo repository.PostRepository) PostService {
	return &postService{postRepo: postRepo}
}

func (p *postService) ListPosts(ctx context.Context, authorID string) ([]models.Post, error) {
	return p.postRepo.GetByAuthorID(ctx, authorID)
}

func (p *postService) CreatePost(ctx context.Context, authorID string, draft models.PostDraft) (*models.Post, error) {
	post := &models.Post{
		AuthorID: authorID,
		Title:    draft.Title,
		Body:     draft.Body,
	}

	if err := p.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	return post, nil
}

// UpdatePost - edits a post of authorID; other authors' posts are not found
func (p *postService) UpdatePost(ctx context.Context, authorID, postID string, draft models.PostDraft) (*models.Post, error) {
	post, err := p.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != authorID {
		return nil, repository.ErrPostNotFound
	}

	post.Title = draft.Title
	post.Body = draft.Body

	if err := p.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}

	return post, nil
}

func (p *postService) DeletePost(ctx context.Context, authorID, postID string) error {
	return p.postRepo.Delete(ctx, postID, authorID)
}
